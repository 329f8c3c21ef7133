package service

import (
	"context"
	"time"
)

type MonitoringService struct {
	panel Panel
	board ViewSource
}

func NewMonitoringService(panel Panel, board ViewSource) *MonitoringService {
	return &MonitoringService{panel: panel, board: board}
}

// Display returns the four regions as currently rendered together with the
// connection state of the live client.
func (s *MonitoringService) Display(ctx context.Context) (DisplayState, error) {
	if err := ctx.Err(); err != nil {
		return DisplayState{}, err
	}
	view := s.board.View()
	return DisplayState{
		Connection: s.panel.State().String(),
		Upstream:   s.panel.URL(),
		Reloads:    s.panel.Reloads(),
		View:       view,
		AlertClass: view.AlertStyle.Class(),
		ObservedAt: time.Now().UTC(),
	}, nil
}

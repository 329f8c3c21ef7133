package service

import (
	"context"
	"fmt"

	"water_pump_monitor/internal/client"
)

type ControlsService struct {
	panel Panel
}

func NewControlsService(panel Panel) *ControlsService {
	return &ControlsService{panel: panel}
}

// Press validates the control before handing it to the client, so an unknown
// control is reported even while the client is down.
func (s *ControlsService) Press(ctx context.Context, control string) error {
	if _, err := client.CommandFor(control); err != nil {
		return err
	}
	if err := s.panel.Press(ctx, control); err != nil {
		return fmt.Errorf("press %s: %w", control, err)
	}
	return nil
}

// Available lists the controls in display order.
func (s *ControlsService) Available() []string {
	return client.Controls()
}

package display

import "sync"

// Board is an in-memory Surface. It is written by the client event loop and
// read concurrently by the HTTP panel.
type Board struct {
	mu   sync.RWMutex
	view View
}

// NewBoard returns a board showing the initial placeholders.
func NewBoard() *Board {
	return &Board{view: InitialView()}
}

func (b *Board) SetText(region Region, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch region {
	case RegionWaterLevel:
		b.view.WaterLevel = text
	case RegionPumpStatus:
		b.view.PumpStatus = text
	case RegionMode:
		b.view.Mode = text
	case RegionAlert:
		b.view.Alert = text
	}
}

func (b *Board) SetStyle(region Region, style Style) {
	if region != RegionAlert {
		return
	}
	b.mu.Lock()
	b.view.AlertStyle = style
	b.mu.Unlock()
}

// View returns a copy of the current content.
func (b *Board) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view
}

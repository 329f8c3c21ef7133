package display

// Region identifies one display element on the panel.
type Region string

const (
	RegionWaterLevel Region = "waterLevel"
	RegionPumpStatus Region = "pumpStatus"
	RegionMode       Region = "mode"
	RegionAlert      Region = "alert"
)

// Surface is anything the panel can be drawn on. Only text content and the
// style of a region are ever written.
type Surface interface {
	SetText(region Region, text string)
	SetStyle(region Region, style Style)
}

// Render writes every region of v to s.
func Render(s Surface, v View) {
	s.SetText(RegionWaterLevel, v.WaterLevel)
	s.SetText(RegionPumpStatus, v.PumpStatus)
	s.SetText(RegionMode, v.Mode)
	s.SetText(RegionAlert, v.Alert)
	s.SetStyle(RegionAlert, v.AlertStyle)
}

// Multi fans writes out to several surfaces.
type Multi []Surface

func (m Multi) SetText(region Region, text string) {
	for _, s := range m {
		s.SetText(region, text)
	}
}

func (m Multi) SetStyle(region Region, style Style) {
	for _, s := range m {
		s.SetStyle(region, style)
	}
}

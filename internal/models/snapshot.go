package models

// Snapshot is the strictly typed form of one inbound telemetry message.
type Snapshot struct {
	WaterLevel    float64 `json:"water_level"`     // percent
	HasWaterLevel bool    `json:"has_water_level"` // false when waterLevel was missing or not a number
	PumpOn        bool    `json:"pump_on"`
	Mode          string  `json:"mode"`  // as sent, e.g. "automatic"
	Alert         string  `json:"alert"` // "Normal" when nothing is wrong
}

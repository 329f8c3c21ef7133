package models

// Command types understood by the remote device.
const (
	CommandSetMode = "set_mode"
	CommandSetPump = "set_pump"
)

// Operating modes accepted by set_mode.
const (
	ModeAutomatic = "automatic"
	ModeManual    = "manual"
)

// Command is an outbound control message. Value is a mode string for set_mode
// and a bool for set_pump.
type Command struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// SetMode builds a set_mode command.
func SetMode(mode string) Command {
	return Command{Type: CommandSetMode, Value: mode}
}

// SetPump builds a set_pump command.
func SetPump(on bool) Command {
	return Command{Type: CommandSetPump, Value: on}
}

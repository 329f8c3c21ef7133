package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
)

var regionLabels = map[Region]string{
	RegionWaterLevel: "Water level:",
	RegionPumpStatus: "Pump:",
	RegionMode:       "Mode:",
	RegionAlert:      "Alert:",
}

// Terminal prints every region update as one line, coloring the alert by its
// style. Colors are only emitted when the writer is a terminal.
type Terminal struct {
	mu        sync.Mutex
	w         io.Writer
	color     bool
	alertText string
}

// NewTerminal writes to w. Pass nil for stdout.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stdout
	}
	return &Terminal{w: w, color: isCharDevice(w)}
}

func isCharDevice(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func (t *Terminal) SetText(region Region, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if region == RegionAlert {
		// Printed once the style is known.
		t.alertText = text
		return
	}
	t.printLine(region, t.colorize(bold, text))
}

func (t *Terminal) SetStyle(region Region, style Style) {
	if region != RegionAlert {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printLine(RegionAlert, t.colorize(styleColor(style), t.alertText))
}

func (t *Terminal) printLine(region Region, value string) {
	fmt.Fprintf(t.w, "  %s %s\n", t.colorize(dim, padRight(regionLabels[region], 13)), value)
}

func styleColor(s Style) string {
	switch s {
	case StylePositive:
		return green
	case StyleWarning:
		return yellow
	case StyleDanger:
		return red
	default:
		return dim
	}
}

// colorize wraps text with an ANSI color sequence when color output is on.
func (t *Terminal) colorize(color, text string) string {
	if !t.color {
		return text
	}
	return color + text + reset
}

// padRight pads s with spaces to reach the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

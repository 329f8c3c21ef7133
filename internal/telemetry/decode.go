// Package telemetry turns raw inbound messages from the tank controller into
// typed snapshots. The wire object is loosely typed (numbers may arrive as
// strings, booleans as "TRUE"), so every field is sanitized on its own.
package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"water_pump_monitor/internal/models"
)

// Wire keys of the telemetry object.
const (
	keyWaterLevel = "waterLevel"
	keyPumpStatus = "pumpStatus"
	keyMode       = "mode"
	keyAlert      = "alert"
)

// DefaultAlert is shown when a message carries no alert.
const DefaultAlert = "Normal"

// ErrMalformedMessage wraps every decode failure.
var ErrMalformedMessage = errors.New("malformed telemetry message")

// Decode parses one inbound message. Missing or odd fields fall back to their
// defaults independently; only a payload that is not JSON at all, a null
// payload, or a mode that is not text fails the whole message.
func Decode(raw []byte) (models.Snapshot, error) {
	v, err := parseJSON(raw)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if v == nil {
		return models.Snapshot{}, fmt.Errorf("%w: null payload", ErrMalformedMessage)
	}

	// Non-object payloads (numbers, strings, arrays) simply have no fields.
	fields, _ := v.(map[string]any)

	var snap models.Snapshot
	snap.WaterLevel, snap.HasWaterLevel = waterLevel(fields[keyWaterLevel])
	snap.PumpOn = pumpStatus(fields[keyPumpStatus])

	mode, err := modeField(fields[keyMode])
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	snap.Mode = mode
	snap.Alert = alertField(fields[keyAlert])

	return snap, nil
}

// parseJSON decodes exactly one JSON value, keeping numbers as json.Number.
func parseJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty payload")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// waterLevel returns the level and whether it is a usable number.
func waterLevel(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if n, ok := v.(json.Number); ok {
		return numberValue(n), true
	}
	return ParseFloat(jsString(v, false))
}

// pumpStatus accepts a bool, a case-insensitive "true" string, or falls back
// to plain truthiness for anything else.
func pumpStatus(v any) bool {
	if s, ok := v.(string); ok {
		return strings.ToLower(s) == "true"
	}
	return truthy(v)
}

func modeField(v any) (string, error) {
	if !truthy(v) {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("mode must be a string, got %T", v)
	}
	return s, nil
}

func alertField(v any) string {
	if !truthy(v) {
		return DefaultAlert
	}
	return jsString(v, false)
}

// truthy follows the usual loose-typing rules: null, false, 0 and "" are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		return numberValue(x) != 0
	default:
		return true
	}
}

// jsString renders a decoded JSON value as text. Inside arrays null renders
// as an empty string.
func jsString(v any, inArray bool) string {
	switch x := v.(type) {
	case nil:
		if inArray {
			return ""
		}
		return "null"
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case json.Number:
		return FormatNumber(numberValue(x))
	case []any:
		parts := make([]string, len(x))
		for i, el := range x {
			parts[i] = jsString(el, true)
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

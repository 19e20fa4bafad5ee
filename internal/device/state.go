package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// State is one decoded telemetry reading from the Mote.
//
// Readings holds the device's JSON object fields as decoded by
// encoding/json: numbers are float64, nested objects are map[string]any.
type State struct {
	Readings   map[string]any `json:"readings"`
	ReceivedAt time.Time      `json:"received_at"`
}

// Decode parses a telemetry payload into a State stamped with receivedAt.
//
// Trailing NUL bytes are trimmed first; the Mote firmware terminates its
// strings on the wire. The payload must be a JSON object. Anything else,
// including null, returns ErrDecodeFailed.
func Decode(payload []byte, receivedAt time.Time) (State, error) {
	trimmed := bytes.TrimRight(payload, "\x00")

	var readings map[string]any
	if err := json.Unmarshal(trimmed, &readings); err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if readings == nil {
		return State{}, fmt.Errorf("%w: payload is not a JSON object", ErrDecodeFailed)
	}

	return State{Readings: readings, ReceivedAt: receivedAt}, nil
}

// Float returns a numeric reading.
func (s State) Float(key string) (float64, bool) {
	v, ok := s.Readings[key].(float64)
	return v, ok
}

// Text returns a string reading.
func (s State) Text(key string) (string, bool) {
	v, ok := s.Readings[key].(string)
	return v, ok
}

// Clone returns a copy whose top-level Readings map can be modified
// without affecting s.
func (s State) Clone() State {
	readings := make(map[string]any, len(s.Readings))
	for k, v := range s.Readings {
		readings[k] = v
	}
	return State{Readings: readings, ReceivedAt: s.ReceivedAt}
}

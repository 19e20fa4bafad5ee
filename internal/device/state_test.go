package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, s State)
	}{
		{
			name:    "object",
			payload: `{"temperature":21.5,"humidity":40,"node":"mote-1"}`,
			check: func(t *testing.T, s State) {
				temp, ok := s.Float("temperature")
				require.True(t, ok)
				assert.InDelta(t, 21.5, temp, 0.0001)
				node, ok := s.Text("node")
				require.True(t, ok)
				assert.Equal(t, "mote-1", node)
				assert.Equal(t, now, s.ReceivedAt)
			},
		},
		{
			name:    "trailing NUL trimmed",
			payload: "{\"temperature\":19}\x00",
			check: func(t *testing.T, s State) {
				temp, _ := s.Float("temperature")
				assert.InDelta(t, 19.0, temp, 0.0001)
			},
		},
		{
			name:    "empty object",
			payload: `{}`,
			check: func(t *testing.T, s State) {
				assert.NotNil(t, s.Readings)
				assert.Empty(t, s.Readings)
			},
		},
		{name: "malformed", payload: `{"temperature":`, wantErr: true},
		{name: "null", payload: `null`, wantErr: true},
		{name: "array", payload: `[1,2,3]`, wantErr: true},
		{name: "scalar", payload: `42`, wantErr: true},
		{name: "empty", payload: ``, wantErr: true},
		{name: "only NUL", payload: "\x00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode([]byte(tt.payload), now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDecodeFailed)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestStateAccessorsWrongType(t *testing.T) {
	s := State{Readings: map[string]any{"temperature": "warm", "count": 3.0}}

	_, ok := s.Float("temperature")
	assert.False(t, ok)
	_, ok = s.Text("count")
	assert.False(t, ok)
	_, ok = s.Float("missing")
	assert.False(t, ok)
}

func TestStateClone(t *testing.T) {
	s := State{Readings: map[string]any{"temperature": 20.0}}
	c := s.Clone()
	c.Readings["temperature"] = 99.0

	temp, _ := s.Float("temperature")
	assert.InDelta(t, 20.0, temp, 0.0001)
}

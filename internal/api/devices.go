package api

import (
	"net/http"
	"time"
)

// stateResponse is the JSON shape of the latest telemetry.
type stateResponse struct {
	Readings   map[string]any `json:"readings"`
	ReceivedAt string         `json:"received_at"`
}

// handleGetDeviceState returns the latest Mote telemetry.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, _ *http.Request) {
	state, ok := s.bridge.LatestState()
	if !ok {
		writeNotFound(w, "no device state received yet")
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		Readings:   state.Readings,
		ReceivedAt: state.ReceivedAt.UTC().Format(time.RFC3339Nano),
	})
}

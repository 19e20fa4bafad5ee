package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iot-demo/mote-bridge/internal/bridge"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
)

// legacyCommandResponse is the body the legacy web page expects.
const legacyCommandResponse = "Ok"

// handleCommand forwards a {dev, opr} request to the broker.
//
// Responses:
//   - 200 {"status":"ok"} once the broker has accepted the publish
//   - 400 for a malformed body
//   - 503 broker_unavailable while the broker link is down (nothing is queued)
//   - 502 publish_failed for any other publish error
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if !s.dispatchCommand(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLegacyCommand serves POST /?handler=PostOperation with the same
// semantics and the plain "Ok" JSON string the page was written against.
func (s *Server) handleLegacyCommand(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("handler") != "PostOperation" {
		writeNotFound(w, "unknown page handler")
		return
	}
	if !s.dispatchCommand(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, legacyCommandResponse)
}

// dispatchCommand decodes and dispatches the request, writing an error
// response and returning false on failure.
func (s *Server) dispatchCommand(w http.ResponseWriter, r *http.Request) bool {
	var req bridge.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}

	if err := s.bridge.Dispatch(req); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			writeError(w, http.StatusServiceUnavailable, ErrCodeBrokerUnavailable, "broker not connected")
			return false
		}
		s.logger.Error("command publish failed",
			"dev", req.Dev,
			"opr", req.Opr,
			"error", err,
			"request_id", requestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusBadGateway, ErrCodePublishFailed, "failed to publish command")
		return false
	}

	return true
}

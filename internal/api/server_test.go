package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iot-demo/mote-bridge/internal/bridge"
	"github.com/iot-demo/mote-bridge/internal/device"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/config"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/logging"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
	"github.com/iot-demo/mote-bridge/internal/metrics"
)

// fakeBridge records dispatched commands and returns canned state.
type fakeBridge struct {
	mu          sync.Mutex
	connected   bool
	dispatchErr error
	state       *device.State
	requests    []bridge.CommandRequest
}

func (f *fakeBridge) Dispatch(req bridge.CommandRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.dispatchErr
}

func (f *fakeBridge) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeBridge) LatestState() (device.State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		return device.State{}, false
	}
	return f.state.Clone(), true
}

func (f *fakeBridge) dispatched() []bridge.CommandRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bridge.CommandRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// testServer creates a Server with a fake bridge and a private registry.
func testServer(t *testing.T, fb *fakeBridge) (*Server, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := logging.Discard()

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:       config.WebSocketConfig{Path: "/ws", MaxMessageSize: 8192},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Logger:   logger,
		Bridge:   fb,
		Hub:      NewHub(logger, m),
		Gatherer: reg,
		Version:  "test",
	})
	require.NoError(t, err)
	return srv, reg
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNew_RequiresDependencies(t *testing.T) {
	logger := logging.Discard()
	hub := NewHub(logger, nil)

	_, err := New(Deps{Bridge: &fakeBridge{}, Hub: hub})
	assert.Error(t, err, "missing logger")

	_, err = New(Deps{Logger: logger, Hub: hub})
	assert.Error(t, err, "missing bridge")

	_, err = New(Deps{Logger: logger, Bridge: &fakeBridge{}})
	assert.Error(t, err, "missing hub")
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		wantStatus int
		wantMQTT   string
	}{
		{"connected", true, http.StatusOK, "connected"},
		{"disconnected", false, http.StatusServiceUnavailable, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := testServer(t, &fakeBridge{connected: tt.connected})
			rr := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/v1/health", "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMQTT, body["mqtt"])
			assert.Equal(t, "test", body["version"])
		})
	}
}

func TestCommand_Success(t *testing.T) {
	fb := &fakeBridge{connected: true}
	srv, _ := testServer(t, fb)

	rr := doRequest(t, srv.buildRouter(), http.MethodPost, "/api/v1/commands", `{"dev":"Mote","opr":"on"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, []bridge.CommandRequest{{Dev: "Mote", Opr: "on"}}, fb.dispatched())
}

func TestCommand_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		dispatchErr error
		wantStatus  int
		wantCode    string
	}{
		{
			name:       "malformed body",
			body:       `{"dev":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
		{
			name:        "broker down",
			body:        `{"dev":"Mote","opr":"on"}`,
			dispatchErr: fmt.Errorf("%w: /iot/zolertia/cmd: %w", bridge.ErrDispatchFailed, mqtt.ErrNotConnected),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    ErrCodeBrokerUnavailable,
		},
		{
			name:        "publish error",
			body:        `{"dev":"Sensor","opr":"off"}`,
			dispatchErr: fmt.Errorf("%w: /iot/sensor/cmd: %w", bridge.ErrDispatchFailed, errors.New("timeout")),
			wantStatus:  http.StatusBadGateway,
			wantCode:    ErrCodePublishFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := testServer(t, &fakeBridge{dispatchErr: tt.dispatchErr})
			rr := doRequest(t, srv.buildRouter(), http.MethodPost, "/api/v1/commands", tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var apiErr Error
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestLegacyCommand(t *testing.T) {
	fb := &fakeBridge{connected: true}
	srv, _ := testServer(t, fb)
	router := srv.buildRouter()

	rr := doRequest(t, router, http.MethodPost, "/?handler=PostOperation", `{"dev":"Sensor","opr":"on"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `"Ok"`, rr.Body.String())
	assert.Equal(t, []bridge.CommandRequest{{Dev: "Sensor", Opr: "on"}}, fb.dispatched())

	rr = doRequest(t, router, http.MethodPost, "/?handler=Other", `{"dev":"Sensor","opr":"on"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Len(t, fb.dispatched(), 1)
}

func TestDeviceState(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		srv, _ := testServer(t, &fakeBridge{})
		rr := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/v1/devices/state", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("latest state", func(t *testing.T) {
		received := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		state := device.State{
			Readings:   map[string]any{"temperature": 21.5, "led": "on"},
			ReceivedAt: received,
		}
		srv, _ := testServer(t, &fakeBridge{state: &state})
		rr := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/v1/devices/state", "")

		require.Equal(t, http.StatusOK, rr.Code)
		var body stateResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, 21.5, body.Readings["temperature"])
		assert.Equal(t, "on", body.Readings["led"])
		assert.Equal(t, received.Format(time.RFC3339Nano), body.ReceivedAt)
	})
}

func TestSystemMetrics(t *testing.T) {
	state := device.State{Readings: map[string]any{"t": 1.0}, ReceivedAt: time.Now()}
	srv, _ := testServer(t, &fakeBridge{connected: true, state: &state})

	rr := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/v1/system/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body SystemMetrics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.MQTT.Connected)
	assert.True(t, body.Device.HasState)
	assert.Equal(t, "test", body.Version)
	assert.Positive(t, body.Runtime.Goroutines)
}

func TestPrometheusEndpoint(t *testing.T) {
	srv, _ := testServer(t, &fakeBridge{})
	rr := doRequest(t, srv.buildRouter(), http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "motebridge_websocket_clients")
}

func TestPrometheusEndpoint_Disabled(t *testing.T) {
	srv, _ := testServer(t, &fakeBridge{})
	srv.metricsCfg.Enabled = false

	rr := doRequest(t, srv.buildRouter(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_StartClose(t *testing.T) {
	srv, _ := testServer(t, &fakeBridge{connected: true})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, srv.Start(ctx))
	require.NotEmpty(t, srv.Addr())
	require.NoError(t, srv.HealthCheck(ctx))

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NoError(t, srv.Close())
}

package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
)

func newTestRouter() *Router {
	return NewRouter(mqtt.NewTopics(mqtt.DefaultNamespace), nil)
}

func TestRoute_DeviceAck(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name    string
		payload []byte
		want    Action
	}{
		{"on with NUL", []byte("on\x00"), emit(ChannelDeviceAck, PayloadOn)},
		{"off with NUL", []byte("off\x00"), emit(ChannelDeviceAck, PayloadOff)},
		{"on without NUL", []byte("on"), ignore(ReasonUnmatchedPayload)},
		{"off without NUL", []byte("off"), ignore(ReasonUnmatchedPayload)},
		{"upper case", []byte("ON\x00"), ignore(ReasonUnmatchedPayload)},
		{"double NUL", []byte("on\x00\x00"), ignore(ReasonUnmatchedPayload)},
		{"empty", nil, ignore(ReasonUnmatchedPayload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Route(mqtt.Message{Topic: "/iot/zolertia/reply", Payload: tt.payload})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoute_SensorAck(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name    string
		payload string
		want    Action
	}{
		{"activated", "Activated_bme280_temperature_sensor", emit(ChannelSensorAck, PayloadOn)},
		{"activated with surroundings", "node3:Activated_bme280_temperature_sensor\x00", emit(ChannelSensorAck, PayloadOn)},
		{"deactivated", "Deactivated_bme280_temperature_sensor", emit(ChannelSensorAck, PayloadOff)},
		{"deactivated with surroundings", "ok Deactivated_bme280_temperature_sensor!", emit(ChannelSensorAck, PayloadOff)},
		{"both markers reports on", "Activated_bme280_temperature_sensor;Deactivated_bme280_temperature_sensor", emit(ChannelSensorAck, PayloadOn)},
		{"both markers deactivated first", "Deactivated_bme280_temperature_sensor;Activated_bme280_temperature_sensor", emit(ChannelSensorAck, PayloadOn)},
		{"lower case marker", "activated_bme280_temperature_sensor", ignore(ReasonUnmatchedPayload)},
		{"unrelated", "hello", ignore(ReasonUnmatchedPayload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Route(mqtt.Message{Topic: "/iot/sensor/reply", Payload: []byte(tt.payload)})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoute_Telemetry(t *testing.T) {
	r := newTestRouter()
	fixed := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	got := r.Route(mqtt.Message{Topic: "/iot/zolertia/data", Payload: []byte(`{"temperature":22.25,"pressure":1013}`)})
	require.Equal(t, ActionUpdateState, got.Kind)
	assert.Equal(t, fixed, got.State.ReceivedAt)
	temp, ok := got.State.Float("temperature")
	require.True(t, ok)
	assert.InDelta(t, 22.25, temp, 0.0001)

	bad := r.Route(mqtt.Message{Topic: "/iot/zolertia/data", Payload: []byte(`{not json`)})
	assert.Equal(t, ignore(ReasonDecodeError), bad)
}

func TestRoute_UnknownTopics(t *testing.T) {
	r := newTestRouter()

	for _, topic := range []string{
		"",
		"   ",
		"/iot/zolertia/cmd",
		"/iot/sensor/cmd",
		"/iot/zolertia/reply/extra",
		"iot/zolertia/reply",
		"/other/zolertia/reply",
	} {
		t.Run(topic, func(t *testing.T) {
			got := r.Route(mqtt.Message{Topic: topic, Payload: []byte("on\x00")})
			assert.Equal(t, ignore(ReasonUnknownTopic), got)
		})
	}
}

func TestRoute_CustomNamespace(t *testing.T) {
	r := NewRouter(mqtt.NewTopics("/lab"), nil)

	assert.Equal(t, emit(ChannelDeviceAck, PayloadOn),
		r.Route(mqtt.Message{Topic: "/lab/zolertia/reply", Payload: []byte("on\x00")}))
	assert.Equal(t, ignore(ReasonUnknownTopic),
		r.Route(mqtt.Message{Topic: "/iot/zolertia/reply", Payload: []byte("on\x00")}))
}

func TestRoute_PanicBecomesIgnore(t *testing.T) {
	r := newTestRouter()
	r.now = func() time.Time { panic("clock failure") }

	var got Action
	assert.NotPanics(t, func() {
		got = r.Route(mqtt.Message{Topic: "/iot/zolertia/data", Payload: []byte(`{"a":1}`)})
	})
	assert.Equal(t, ignore(ReasonPanic), got)
}

func TestRoute_Concurrent(t *testing.T) {
	r := newTestRouter()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, ActionEmitEvent, r.Route(mqtt.Message{Topic: "/iot/zolertia/reply", Payload: []byte("off\x00")}).Kind)
				assert.Equal(t, ActionUpdateState, r.Route(mqtt.Message{Topic: "/iot/zolertia/data", Payload: []byte(`{"n":1}`)}).Kind)
			}
		}()
	}
	wg.Wait()
}

func TestActionKindString(t *testing.T) {
	assert.Equal(t, "event", ActionEmitEvent.String())
	assert.Equal(t, "state", ActionUpdateState.String())
	assert.Equal(t, "ignored", ActionIgnore.String())
}

package bridge

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
	"github.com/iot-demo/mote-bridge/internal/metrics"
)

func TestCommander_Dispatch(t *testing.T) {
	tests := []struct {
		name        string
		req         CommandRequest
		wantTopic   string
		wantPayload string
	}{
		{"mote passthrough", CommandRequest{Dev: "Mote", Opr: "LEDON"}, "/iot/zolertia/cmd", "LEDON"},
		{"mote empty operation", CommandRequest{Dev: "Mote", Opr: ""}, "/iot/zolertia/cmd", ""},
		{"mote on is not translated", CommandRequest{Dev: "Mote", Opr: "on"}, "/iot/zolertia/cmd", "on"},
		{"sensor on", CommandRequest{Dev: "Sensor", Opr: "on"}, "/iot/sensor/cmd", SensorActivate},
		{"sensor off", CommandRequest{Dev: "Sensor", Opr: "off"}, "/iot/sensor/cmd", SensorDeactivate},
		{"sensor anything else", CommandRequest{Dev: "bme280", Opr: "toggle"}, "/iot/sensor/cmd", SensorDeactivate},
		{"empty selector", CommandRequest{}, "/iot/sensor/cmd", SensorDeactivate},
		{"selector is case sensitive", CommandRequest{Dev: "mote", Opr: "on"}, "/iot/sensor/cmd", SensorActivate},
		{"operation is case sensitive", CommandRequest{Dev: "Sensor", Opr: "ON"}, "/iot/sensor/cmd", SensorDeactivate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewMockMQTTClient()
			c := NewCommander(client, mqtt.NewTopics("/iot"), mqtt.QoSAtLeastOnce, nil, nil)

			require.NoError(t, c.Dispatch(tt.req))

			published := client.GetPublished()
			require.Len(t, published, 1)
			assert.Equal(t, tt.wantTopic, published[0].Topic)
			assert.Equal(t, tt.wantPayload, string(published[0].Payload))
			assert.Equal(t, mqtt.QoSAtLeastOnce, published[0].QoS)
			assert.False(t, published[0].Retained)
		})
	}
}

func TestCommander_DispatchErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	client := NewMockMQTTClient()
	c := NewCommander(client, mqtt.NewTopics("/iot"), mqtt.QoSAtLeastOnce, m, nil)

	client.FailPublish(mqtt.ErrNotConnected)
	err := c.Dispatch(CommandRequest{Dev: "Mote", Opr: "LEDON"})
	assert.ErrorIs(t, err, ErrDispatchFailed)
	assert.ErrorIs(t, err, mqtt.ErrNotConnected)

	client.FailPublish(mqtt.ErrPublishFailed)
	err = c.Dispatch(CommandRequest{Dev: "Sensor", Opr: "on"})
	assert.ErrorIs(t, err, ErrDispatchFailed)
	assert.ErrorIs(t, err, mqtt.ErrPublishFailed)
	assert.NotErrorIs(t, err, mqtt.ErrNotConnected)

	client.FailPublish(nil)
	require.NoError(t, c.Dispatch(CommandRequest{Dev: "Sensor", Opr: "on"}))

	count, err := testutil.GatherAndCount(reg, "motebridge_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCommander_Resolve(t *testing.T) {
	c := NewCommander(NewMockMQTTClient(), mqtt.NewTopics("/lab"), mqtt.QoSAtLeastOnce, nil, nil)

	topic, payload := c.Resolve(CommandRequest{Dev: "Mote", Opr: "x"})
	assert.Equal(t, "/lab/zolertia/cmd", topic)
	assert.Equal(t, "x", payload)

	topic, payload = c.Resolve(CommandRequest{Dev: "Sensor", Opr: "on"})
	assert.Equal(t, "/lab/sensor/cmd", topic)
	assert.Equal(t, SensorActivate, payload)
}

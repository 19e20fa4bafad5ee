package broker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/broker"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/broker/brokertest"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/config"
)

func TestNew_RequiresAddress(t *testing.T) {
	_, err := broker.New(config.BrokerConfig{Embedded: true}, nil)
	require.Error(t, err)
}

func TestBroker_InlinePublishReachesInlineSubscriber(t *testing.T) {
	f := brokertest.Start(t)

	got := make(chan string, 1)
	require.NoError(t, f.Subscribe("/iot/zolertia/cmd", 1, func(topic string, payload []byte) {
		got <- topic + "=" + string(payload)
	}))

	require.NoError(t, f.Publish("/iot/zolertia/cmd", []byte("LEDON"), false, 0))

	select {
	case v := <-got:
		assert.Equal(t, "/iot/zolertia/cmd=LEDON", v)
	case <-time.After(2 * time.Second):
		t.Fatal("inline subscriber did not receive message")
	}
}

func TestBroker_DisconnectUnknownClient(t *testing.T) {
	f := brokertest.Start(t)

	err := f.Disconnect("nobody", errors.New("test"))
	assert.ErrorIs(t, err, broker.ErrClientNotFound)
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	f := brokertest.Start(t)

	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
}

package broker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/config"
)

// ErrClientNotFound is returned by Disconnect for an unknown client ID.
var ErrClientNotFound = errors.New("broker: client not found")

// listenerID names the single TCP listener.
const listenerID = "tcp"

// Broker is an in-process MQTT broker for development and tests.
// It accepts anonymous clients on one TCP listener.
type Broker struct {
	server  *mqttbroker.Server
	address string

	closeOnce sync.Once
}

// New creates a broker listening on cfg.Address. Call Start to accept clients.
//
// Extra hooks, if any, are added after the allow-all auth hook.
func New(cfg config.BrokerConfig, logger *slog.Logger, hooks ...mqttbroker.Hook) (*Broker, error) {
	if cfg.Address == "" {
		return nil, errors.New("broker: address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	server := mqttbroker.New(&mqttbroker.Options{
		InlineClient: true,
		Logger:       logger.With(slog.String("component", "mqtt-broker")),
	})

	tcp := listeners.NewTCP(listeners.Config{ID: listenerID, Address: cfg.Address})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("broker: adding listener: %w", err)
	}

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("broker: adding auth hook: %w", err)
	}
	for _, h := range hooks {
		if err := server.AddHook(h, nil); err != nil {
			return nil, fmt.Errorf("broker: adding hook %s: %w", h.ID(), err)
		}
	}

	return &Broker{server: server, address: cfg.Address}, nil
}

// Start begins accepting connections. It does not block.
func (b *Broker) Start() error {
	if err := b.server.Serve(); err != nil {
		return fmt.Errorf("broker: serve: %w", err)
	}
	return nil
}

// Address returns the configured listen address.
func (b *Broker) Address() string {
	return b.address
}

// Publish injects a message as if a device had sent it.
func (b *Broker) Publish(topic string, payload []byte, retain bool, qos byte) error {
	return b.server.Publish(topic, payload, retain, qos)
}

// Subscribe registers an inline subscription, used to observe what clients publish.
func (b *Broker) Subscribe(filter string, id int, handler func(topic string, payload []byte)) error {
	return b.server.Subscribe(filter, id, func(_ *mqttbroker.Client, _ packets.Subscription, pk packets.Packet) {
		handler(pk.TopicName, pk.Payload)
	})
}

// Disconnect drops a connected client's network link from the broker side.
func (b *Broker) Disconnect(clientID string, cause error) error {
	cl, ok := b.server.Clients.Get(clientID)
	if !ok {
		return ErrClientNotFound
	}
	cl.Stop(cause)
	return nil
}

// Close stops every listener and disconnects all clients.
func (b *Broker) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.server.Close()
	})
	return err
}

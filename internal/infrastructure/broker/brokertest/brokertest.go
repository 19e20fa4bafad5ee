// Package brokertest starts throwaway in-process MQTT brokers for tests.
package brokertest

import (
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"

	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/broker"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/config"
)

// Fixture is a running broker plus a record of the subscriptions it granted.
type Fixture struct {
	*broker.Broker
	Host string
	Port int

	recorder *subscribeRecorder
}

// Start launches a broker on a free loopback port and registers cleanup.
func Start(t testing.TB) *Fixture {
	t.Helper()
	return StartOn(t, FreePort(t))
}

// StartOn launches a broker on the given loopback port.
func StartOn(t testing.TB, port int) *Fixture {
	t.Helper()

	rec := &subscribeRecorder{counts: make(map[string]int)}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	b, err := broker.New(config.BrokerConfig{Embedded: true, Address: addr},
		slog.New(slog.NewTextHandler(io.Discard, nil)), rec)
	if err != nil {
		t.Fatalf("broker.New() error = %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("broker.Start() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	return &Fixture{Broker: b, Host: "127.0.0.1", Port: port, recorder: rec}
}

// FreePort returns a loopback TCP port that was free a moment ago.
func FreePort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// SubscribeCount returns how many times filter has been subscribed by any client.
func (f *Fixture) SubscribeCount(filter string) int {
	return f.recorder.count(filter)
}

// subscribeRecorder counts SUBSCRIBE filters seen by the broker.
type subscribeRecorder struct {
	mqttbroker.HookBase

	mu     sync.Mutex
	counts map[string]int
}

func (h *subscribeRecorder) ID() string {
	return "subscribe-recorder"
}

func (h *subscribeRecorder) Provides(b byte) bool {
	return b == mqttbroker.OnSubscribed
}

func (h *subscribeRecorder) OnSubscribed(_ *mqttbroker.Client, pk packets.Packet, _ []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range pk.Filters {
		h.counts[f.Filter]++
	}
}

func (h *subscribeRecorder) count(filter string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[filter]
}

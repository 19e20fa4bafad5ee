package bridge

import (
	"context"
	"sync"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []Subscription
	subscribeErr  map[string]error
	publishErr    error
	connected     bool
	onConnect     func(ctx context.Context)

	messages chan mqtt.Message
	states   chan mqtt.ConnectionEvent
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      mqtt.QoS
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected:    true,
		subscribeErr: make(map[string]error),
		messages:     make(chan mqtt.Message, 16),
		states:       make(chan mqtt.ConnectionEvent, 16),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos mqtt.QoS, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos mqtt.QoS) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.subscribeErr[topic]; err != nil {
		return err
	}
	m.subscriptions = append(m.subscriptions, Subscription{Topic: topic, QoS: qos})
	return nil
}

func (m *MockMQTTClient) Messages() <-chan mqtt.Message {
	return m.messages
}

func (m *MockMQTTClient) States() <-chan mqtt.ConnectionEvent {
	return m.states
}

func (m *MockMQTTClient) SetOnConnect(hook func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnect = hook
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SimulateConnect runs the connect hook the way the real client does.
func (m *MockMQTTClient) SimulateConnect() {
	m.mu.Lock()
	hook := m.onConnect
	m.mu.Unlock()
	if hook != nil {
		hook(context.Background())
	}
	m.states <- mqtt.ConnectionEvent{State: mqtt.StateConnected}
}

// SimulateDisconnect reports a lost link.
func (m *MockMQTTClient) SimulateDisconnect() {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	m.states <- mqtt.ConnectionEvent{State: mqtt.StateDisconnected}
}

// SimulateMessage queues an inbound message.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) {
	m.messages <- mqtt.Message{Topic: topic, Payload: payload}
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublish, len(m.published))
	copy(out, m.published)
	return out
}

func (m *MockMQTTClient) GetSubscriptions() []Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Subscription, len(m.subscriptions))
	copy(out, m.subscriptions)
	return out
}

func (m *MockMQTTClient) FailSubscribe(topic string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeErr[topic] = err
}

func (m *MockMQTTClient) FailPublish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

// recordingSink implements EventSink for testing.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Broadcast(channel, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Channel: channel, Payload: payload})
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

type panicSink struct{}

func (panicSink) Broadcast(string, string) { panic("sink exploded") }

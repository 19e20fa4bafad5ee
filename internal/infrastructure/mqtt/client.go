package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/config"
)

// Logger defines the logging interface used by the MQTT client.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger drops every entry. Used until SetLogger is called.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Message is an inbound publication. Payload is a private copy and may be
// retained by the receiver.
type Message struct {
	Topic   string
	Payload []byte
}

// ConnectionState is the link state reported on the States channel.
type ConnectionState int

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnected
)

// String returns the lower-case state name.
func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ConnectionEvent reports a link state transition.
type ConnectionEvent struct {
	State ConnectionState
	// Err is the cause of a disconnect, nil for an orderly close.
	Err error
	// Attempts is the number of connection attempts it took to get connected.
	Attempts int
	At       time.Time
}

// Client owns the single broker connection of the bridge.
//
// A supervisor goroutine started by Start connects to the broker and, on
// failure or on loss of an established link, waits a fixed delay and tries
// again until Close is called. After each successful connect the OnConnect
// hook runs to completion before the client reports itself connected, so
// callers observing IsConnected()==true know the subscription set is in place.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   pahomqtt.Client
	cfg      config.MQTTConfig
	clientID string
	delay    time.Duration

	connected atomic.Bool

	// ready is closed the first time the client becomes connected.
	ready     chan struct{}
	readyOnce sync.Once

	messages chan Message
	states   chan ConnectionEvent
	lost     chan error

	// closing is closed at the start of Close; done when the supervisor exits.
	closing   chan struct{}
	done      chan struct{}
	cancel    context.CancelFunc
	started   atomic.Bool
	closeOnce sync.Once

	callbackMu   sync.RWMutex
	onConnect    func(ctx context.Context)
	onDisconnect func(err error)

	loggerMu sync.RWMutex
	logger   Logger
}

// New creates a Client for the configured broker without connecting.
//
// If cfg.Broker.ClientID is empty a unique ID of the form
// <ClientIDPrefix>-<uuid> is generated once and reused for every reconnect.
//
// Returns:
//   - *Client: Ready to Start
//   - error: If the configuration cannot describe a broker connection
func New(cfg config.MQTTConfig) (*Client, error) {
	if cfg.Broker.Host == "" {
		return nil, fmt.Errorf("%w: broker host is required", ErrConnectionFailed)
	}
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return nil, ErrInvalidQoS
	}

	buffer := cfg.InboundBuffer
	if buffer <= 0 {
		buffer = defaultInboundBuffer
	}

	c := &Client{
		cfg:      cfg,
		clientID: resolveClientID(cfg),
		delay:    reconnectDelay(cfg),
		ready:    make(chan struct{}),
		messages: make(chan Message, buffer),
		states:   make(chan ConnectionEvent, stateBuffer),
		lost:     make(chan error, 1),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		logger:   noopLogger{},
	}

	opts := buildClientOptions(cfg, c.clientID)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.connected.Store(false)
		select {
		case c.lost <- err:
		default:
		}
	})

	c.client = pahomqtt.NewClient(opts)
	return c, nil
}

// Start launches the connection supervisor and returns immediately.
// Use WaitConnected or the States channel to observe the first connect.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.supervise(ctx)
	return nil
}

// supervise connects, waits for link loss, and reconnects at a fixed delay.
func (c *Client) supervise(ctx context.Context) {
	defer close(c.done)

	attempts := 0
	for {
		attempts++
		if err := c.connectOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.getLogger().Warn("MQTT connection attempt failed",
				"broker", brokerURL(c.cfg),
				"attempt", attempts,
				"retry_in", c.delay.String(),
				"error", err,
			)
			if !sleepContext(ctx, c.delay) {
				return
			}
			continue
		}

		// A loss signalled from here on stays queued on c.lost until the
		// wait below consumes it.
		c.runOnConnect(ctx)

		c.connected.Store(c.client.IsConnectionOpen())
		if c.connected.Load() {
			c.readyOnce.Do(func() { close(c.ready) })
			c.emitState(ConnectionEvent{State: StateConnected, Attempts: attempts, At: time.Now()})
			c.getLogger().Info("connected to MQTT broker",
				"broker", brokerURL(c.cfg),
				"client_id", c.clientID,
				"attempts", attempts,
			)
		}
		attempts = 0

		var lostErr error
		select {
		case <-ctx.Done():
			return
		case lostErr = <-c.lost:
		}

		c.connected.Store(false)
		c.emitState(ConnectionEvent{State: StateDisconnected, Err: lostErr, At: time.Now()})
		c.runOnDisconnect(lostErr)
		c.getLogger().Warn("MQTT connection lost",
			"broker", brokerURL(c.cfg),
			"retry_in", c.delay.String(),
			"error", lostErr,
		)

		if !sleepContext(ctx, c.delay) {
			return
		}
	}
}

// connectOnce performs a single connection attempt bounded by the paho connect timeout.
func (c *Client) connectOnce(ctx context.Context) error {
	token := c.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// runOnConnect invokes the connect hook, recovering from panics.
func (c *Client) runOnConnect(ctx context.Context) {
	c.callbackMu.RLock()
	hook := c.onConnect
	c.callbackMu.RUnlock()

	if hook == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.getLogger().Error("panic in MQTT connect hook", "panic", fmt.Sprintf("%v", r))
		}
	}()
	hook(ctx)
}

// runOnDisconnect invokes the disconnect callback, recovering from panics.
func (c *Client) runOnDisconnect(err error) {
	c.callbackMu.RLock()
	cb := c.onDisconnect
	c.callbackMu.RUnlock()

	if cb == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.getLogger().Error("panic in MQTT disconnect callback", "panic", fmt.Sprintf("%v", r))
		}
	}()
	cb(err)
}

// emitState publishes a connection event, discarding the oldest event if
// the buffer is full. Only the supervisor and Close call it.
func (c *Client) emitState(ev ConnectionEvent) {
	for {
		select {
		case c.states <- ev:
			return
		default:
			select {
			case <-c.states:
			default:
			}
		}
	}
}

// handleMessage copies an inbound publication onto the Messages channel.
// Blocks while the channel is full so delivery order is preserved.
func (c *Client) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	select {
	case c.messages <- Message{Topic: msg.Topic(), Payload: payload}:
	case <-c.closing:
		c.getLogger().Debug("dropping MQTT message after close", "topic", msg.Topic())
	}
}

// Messages returns the channel of inbound publications for all subscriptions.
// It is never closed; stop reading when your own context ends.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// States returns the channel of connection state transitions.
// When nobody drains it the oldest events are discarded.
func (c *Client) States() <-chan ConnectionEvent {
	return c.states
}

// WaitConnected blocks until the client has connected at least once,
// the context ends, or the client is closed.
func (c *Client) WaitConnected(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closing:
		return ErrClosed
	}
}

// IsConnected reports whether the link is up and the connect hook has completed.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnectionOpen()
}

// ClientID returns the identifier presented to the broker.
func (c *Client) ClientID() string {
	return c.clientID
}

// HealthCheck verifies the MQTT connection is alive.
//
// Returns:
//   - nil if connected
//   - ErrNotConnected if not connected
//   - context error if ctx is cancelled
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// SetOnConnect sets the hook awaited after every successful (re)connect,
// before the client reports itself connected. The context ends on Close.
func (c *Client) SetOnConnect(hook func(ctx context.Context)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onConnect = hook
}

// SetOnDisconnect sets a callback invoked when an established link is lost.
func (c *Client) SetOnDisconnect(cb func(err error)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onDisconnect = cb
}

// SetLogger sets the logger used for connection and delivery diagnostics.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.loggerMu.Lock()
	defer c.loggerMu.Unlock()
	c.logger = logger
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// Close stops the supervisor and disconnects from the broker.
//
// It is safe to call Close multiple times and on a client that was never started.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.closing != nil {
			close(c.closing)
		}

		if c.cancel != nil {
			c.cancel()
			<-c.done
		}

		wasConnected := c.connected.Swap(false)

		if c.client != nil && c.client.IsConnectionOpen() {
			c.client.Disconnect(defaultDisconnectQuiesce)
		}

		if wasConnected && c.states != nil {
			c.emitState(ConnectionEvent{State: StateDisconnected, At: time.Now()})
			c.getLogger().Info("disconnected from MQTT broker", "broker", brokerURL(c.cfg))
		}
	})
	return nil
}

// sleepContext waits for d or until ctx ends. Reports whether the full
// duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

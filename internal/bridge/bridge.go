package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/iot-demo/mote-bridge/internal/device"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
	"github.com/iot-demo/mote-bridge/internal/metrics"
)

// MQTTClient is the interface for MQTT operations.
// *mqtt.Client satisfies it; tests use a mock.
type MQTTClient interface {
	Publisher
	Subscriber

	// Messages returns the inbound publications for all subscriptions.
	Messages() <-chan mqtt.Message

	// States returns connection state transitions.
	States() <-chan mqtt.ConnectionEvent

	// SetOnConnect installs a hook awaited after every (re)connect.
	SetOnConnect(hook func(ctx context.Context))

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Options holds the dependencies for creating a bridge.
type Options struct {
	// Client is the broker connection. Required.
	Client MQTTClient

	// Sink receives semantic events. Required.
	Sink EventSink

	// Store receives decoded telemetry. Required.
	Store *device.Store

	// Topics roots every topic the bridge uses.
	Topics mqtt.Topics

	// QoS is used for subscriptions and command publishes.
	QoS mqtt.QoS

	// Metrics is optional; nil records nothing.
	Metrics *metrics.Metrics

	// Logger is optional.
	Logger Logger
}

// Bridge wires the broker connection to web clients.
// It handles:
//   - Re-subscribing to the fixed topic set after every connect
//   - Routing inbound messages to events or device state
//   - Publishing commands from web clients
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	client    MQTTClient
	sink      EventSink
	store     *device.Store
	router    *Router
	subs      *SubscriptionManager
	commander *Commander
	metrics   *metrics.Metrics
	logger    Logger

	// Shutdown coordination
	started  atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a bridge. Call Start before starting the MQTT client so the
// subscription hook is in place for the first connect.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, errors.New("bridge: MQTT client is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("bridge: event sink is required")
	}
	if opts.Store == nil {
		return nil, errors.New("bridge: device store is required")
	}
	if !opts.QoS.Valid() {
		return nil, fmt.Errorf("bridge: %w", mqtt.ErrInvalidQoS)
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Bridge{
		client:    opts.Client,
		sink:      opts.Sink,
		store:     opts.Store,
		router:    NewRouter(opts.Topics, logger),
		subs:      NewSubscriptionManager(opts.Client, opts.Topics, opts.QoS, opts.Metrics, logger),
		commander: NewCommander(opts.Client, opts.Topics, opts.QoS, opts.Metrics, logger),
		metrics:   opts.Metrics,
		logger:    logger,
	}, nil
}

// Start installs the subscription hook and starts the message loop.
// The loop runs until ctx is cancelled or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.client.SetOnConnect(b.subs.OnConnected)

	b.wg.Add(2)
	go b.messageLoop(ctx)
	go b.watchConnection(ctx)

	b.logger.Info("bridge started", "subscriptions", len(b.subs.Subscriptions()))
	return nil
}

// Stop ends the message loop and waits for it to exit.
// Messages still queued on the client are not processed.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
		b.logger.Info("bridge stopped")
	})
}

// messageLoop is the single consumer of inbound messages.
func (b *Bridge) messageLoop(ctx context.Context) {
	defer b.wg.Done()

	msgs := b.client.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgs:
			b.HandleMessage(msg)
		}
	}
}

// watchConnection mirrors connection transitions into metrics.
func (b *Bridge) watchConnection(ctx context.Context) {
	defer b.wg.Done()

	states := b.client.States()
	seenConnected := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-states:
			switch ev.State {
			case mqtt.StateConnected:
				b.metrics.SetConnected(true)
				if seenConnected {
					b.metrics.Reconnected()
				}
				seenConnected = true
			case mqtt.StateDisconnected:
				b.metrics.SetConnected(false)
			}
		}
	}
}

// HandleMessage routes one message and applies the result.
// A panicking sink is recovered so the loop keeps running.
func (b *Bridge) HandleMessage(msg mqtt.Message) (action Action) {
	action = b.router.Route(msg)

	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("panic while applying routed message",
				"topic", msg.Topic,
				"action", action.Kind.String(),
				"panic", fmt.Sprintf("%v", rec),
			)
		}
	}()

	b.metrics.RoutedMessage(action.Kind.String())

	switch action.Kind {
	case ActionEmitEvent:
		b.metrics.EventEmitted(action.Event.Channel)
		b.sink.Broadcast(action.Event.Channel, action.Event.Payload)
	case ActionUpdateState:
		b.store.Set(action.State)
	case ActionIgnore:
		if action.Reason == ReasonDecodeError {
			b.metrics.DecodeError()
		}
		b.logger.Debug("message ignored", "topic", msg.Topic, "reason", action.Reason)
	}

	return action
}

// Dispatch publishes a web client command.
func (b *Bridge) Dispatch(req CommandRequest) error {
	return b.commander.Dispatch(req)
}

// IsConnected reports whether the broker link is ready.
func (b *Bridge) IsConnected() bool {
	return b.client.IsConnected()
}

// LatestState returns the most recent telemetry, if any.
func (b *Bridge) LatestState() (device.State, bool) {
	return b.store.Get()
}

// Subscriptions returns the topics re-applied on every connect.
func (b *Bridge) Subscriptions() []Subscription {
	return b.subs.Subscriptions()
}

package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
	"github.com/iot-demo/mote-bridge/internal/metrics"
)

// Subscriber is the part of the MQTT client the subscription manager needs.
type Subscriber interface {
	Subscribe(topic string, qos mqtt.QoS) error
}

// Subscription is one topic of interest and the QoS to request for it.
type Subscription struct {
	Topic string
	QoS   mqtt.QoS
}

// SubscriptionManager re-applies the bridge's fixed subscription set after
// every connect. The broker session is clean, so nothing survives a reconnect.
type SubscriptionManager struct {
	client  Subscriber
	subs    []Subscription
	metrics *metrics.Metrics
	logger  Logger
}

// NewSubscriptionManager creates a manager for the device reply, sensor
// reply and telemetry topics, all at qos.
func NewSubscriptionManager(client Subscriber, topics mqtt.Topics, qos mqtt.QoS, m *metrics.Metrics, logger Logger) *SubscriptionManager {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SubscriptionManager{
		client: client,
		subs: []Subscription{
			{Topic: topics.DeviceReply(), QoS: qos},
			{Topic: topics.SensorReply(), QoS: qos},
			{Topic: topics.DeviceData(), QoS: qos},
		},
		metrics: m,
		logger:  logger,
	}
}

// Subscriptions returns a copy of the managed subscription set.
func (sm *SubscriptionManager) Subscriptions() []Subscription {
	out := make([]Subscription, len(sm.subs))
	copy(out, sm.subs)
	return out
}

// Resubscribe issues one subscribe per topic and returns once all have
// completed. A failing topic does not stop the others; all failures are
// returned joined.
func (sm *SubscriptionManager) Resubscribe(ctx context.Context) error {
	var errs []error
	for _, sub := range sm.subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := sm.client.Subscribe(sub.Topic, sub.QoS); err != nil {
			sm.metrics.SubscribeError(sub.Topic)
			sm.logger.Error("subscribe failed", "topic", sub.Topic, "qos", int(sub.QoS), "error", err)
			errs = append(errs, fmt.Errorf("subscribe %s: %w", sub.Topic, err))
			continue
		}
		sm.logger.Info("subscribed", "topic", sub.Topic, "qos", int(sub.QoS))
	}
	return errors.Join(errs...)
}

// OnConnected is the connect hook installed on the MQTT client.
// Failures are already logged and counted by Resubscribe.
func (sm *SubscriptionManager) OnConnected(ctx context.Context) {
	_ = sm.Resubscribe(ctx)
}

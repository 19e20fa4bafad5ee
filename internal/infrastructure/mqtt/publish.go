package mqtt

import (
	"fmt"
	"strings"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Publishing is drop-on-disconnect: when the client is not connected the
// call fails immediately with ErrNotConnected and nothing is queued.
//
// Parameters:
//   - topic: Concrete topic to publish to (wildcards are rejected)
//   - payload: Message body, max 1MB
//   - qos: Delivery guarantee
//   - retained: Whether the broker should retain the message
//
// Returns:
//   - error: nil once the broker has acknowledged per qos, or a wrapped
//     ErrPublishFailed/ErrNotConnected/ErrInvalidTopic/ErrInvalidQoS
//
// Example:
//
//	topics := mqtt.NewTopics("/iot")
//	err := client.Publish(topics.SensorCommand(), []byte("ACTIVATETEMPSEN"), mqtt.QoSAtLeastOnce, false)
func (c *Client) Publish(topic string, payload []byte, qos QoS, retained bool) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopic
	}
	if !qos.Valid() {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(qos), retained, payload)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString is a convenience method that publishes a string payload.
func (c *Client) PublishString(topic, payload string, qos QoS, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

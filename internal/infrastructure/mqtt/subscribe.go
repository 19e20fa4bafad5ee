package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// subackFailure is the SUBACK return code for a refused subscription.
const subackFailure = 0x80

// Subscribe asks the broker for publications on topic. Matching messages
// are delivered on the Messages channel.
//
// The client does not remember subscriptions. With a clean session the
// broker forgets them on every disconnect, so callers re-issue them from
// the OnConnect hook. Subscribe only needs the network link to be open,
// which lets the hook run before IsConnected reports true.
//
// Returns:
//   - error: nil on a granted SUBACK, or a wrapped ErrSubscribeFailed,
//     ErrNotConnected, ErrInvalidTopic or ErrInvalidQoS
func (c *Client) Subscribe(topic string, qos QoS) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !qos.Valid() {
		return ErrInvalidQoS
	}

	if c.client == nil || !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, byte(qos), c.handleMessage)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrSubscribeFailed, topic, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code == subackFailure {
			return fmt.Errorf("%w: %s: refused by broker", ErrSubscribeFailed, topic)
		}
	}

	return nil
}

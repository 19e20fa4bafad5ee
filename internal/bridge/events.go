package bridge

import "github.com/iot-demo/mote-bridge/internal/device"

// Event channels broadcast to web clients.
const (
	// ChannelDeviceAck carries the Mote's on/off acknowledgements.
	ChannelDeviceAck = "device-ack"

	// ChannelSensorAck carries the BME280 sensor's activation acknowledgements.
	ChannelSensorAck = "sensor-ack"
)

// Event payloads.
const (
	PayloadOn  = "on"
	PayloadOff = "off"
)

// Event is a semantic notification for web clients derived from broker traffic.
type Event struct {
	Channel string
	Payload string
}

// EventSink receives events emitted by the router.
// Implementations must not block the caller for long.
type EventSink interface {
	Broadcast(channel, payload string)
}

// ActionKind says what the bridge should do with a routed message.
type ActionKind int

// Action kinds.
const (
	ActionIgnore ActionKind = iota
	ActionEmitEvent
	ActionUpdateState
)

// String returns the action name as used in logs and metrics.
func (k ActionKind) String() string {
	switch k {
	case ActionEmitEvent:
		return "event"
	case ActionUpdateState:
		return "state"
	default:
		return "ignored"
	}
}

// Reasons attached to ignored messages.
const (
	ReasonUnknownTopic     = "unknown_topic"
	ReasonUnmatchedPayload = "unmatched_payload"
	ReasonDecodeError      = "decode_error"
	ReasonPanic            = "panic"
)

// Action is the routing decision for one inbound message.
// Exactly one of Event or State is meaningful, selected by Kind.
type Action struct {
	Kind   ActionKind
	Event  Event
	State  device.State
	Reason string
}

func emit(channel, payload string) Action {
	return Action{Kind: ActionEmitEvent, Event: Event{Channel: channel, Payload: payload}}
}

func updateState(s device.State) Action {
	return Action{Kind: ActionUpdateState, State: s}
}

func ignore(reason string) Action {
	return Action{Kind: ActionIgnore, Reason: reason}
}

package bridge

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/iot-demo/mote-bridge/internal/device"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
)

// Acknowledgement payloads sent by the Mote firmware. The trailing NUL is
// part of the wire format and must match exactly.
var (
	deviceAckOn  = []byte("on\x00")
	deviceAckOff = []byte("off\x00")
)

// Sensor node acknowledgement markers, matched by substring.
const (
	sensorDeactivated = "Deactivated_bme280_temperature_sensor"
	sensorActivated   = "Activated_bme280_temperature_sensor"
)

// Router classifies inbound messages by exact topic and turns them into actions.
//
// Route has no side effects other than logging, so a single Router may be
// shared by concurrent callers.
type Router struct {
	deviceReply string
	sensorReply string
	deviceData  string

	now    func() time.Time
	logger Logger
}

// NewRouter creates a router for the topic set rooted at topics.
func NewRouter(topics mqtt.Topics, logger Logger) *Router {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Router{
		deviceReply: topics.DeviceReply(),
		sensorReply: topics.SensorReply(),
		deviceData:  topics.DeviceData(),
		now:         time.Now,
		logger:      logger,
	}
}

// Route decides what to do with msg. It never panics; a panic during
// classification or decoding is logged and becomes an ignore.
func (r *Router) Route(msg mqtt.Message) (action Action) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while routing message",
				"topic", msg.Topic,
				"panic", fmt.Sprintf("%v", rec),
			)
			action = ignore(ReasonPanic)
		}
	}()

	r.logger.Debug("message received", "topic", msg.Topic, "payload", string(msg.Payload))

	if strings.TrimSpace(msg.Topic) == "" {
		return ignore(ReasonUnknownTopic)
	}

	switch msg.Topic {
	case r.deviceReply:
		return r.routeDeviceAck(msg.Payload)
	case r.sensorReply:
		return r.routeSensorAck(msg.Payload)
	case r.deviceData:
		return r.routeTelemetry(msg)
	default:
		return ignore(ReasonUnknownTopic)
	}
}

func (r *Router) routeDeviceAck(payload []byte) Action {
	switch {
	case bytes.Equal(payload, deviceAckOn):
		return emit(ChannelDeviceAck, PayloadOn)
	case bytes.Equal(payload, deviceAckOff):
		return emit(ChannelDeviceAck, PayloadOff)
	default:
		return ignore(ReasonUnmatchedPayload)
	}
}

// routeSensorAck tests the activated marker first, so a payload carrying
// both markers reports on.
func (r *Router) routeSensorAck(payload []byte) Action {
	text := string(payload)
	switch {
	case strings.Contains(text, sensorActivated):
		return emit(ChannelSensorAck, PayloadOn)
	case strings.Contains(text, sensorDeactivated):
		return emit(ChannelSensorAck, PayloadOff)
	default:
		return ignore(ReasonUnmatchedPayload)
	}
}

func (r *Router) routeTelemetry(msg mqtt.Message) Action {
	state, err := device.Decode(msg.Payload, r.now())
	if err != nil {
		r.logger.Warn("dropping undecodable telemetry",
			"topic", msg.Topic,
			"error", err,
		)
		return ignore(ReasonDecodeError)
	}
	return updateState(state)
}

package bridge

import (
	"errors"
	"fmt"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
	"github.com/iot-demo/mote-bridge/internal/metrics"
)

// Command payloads understood by the BME280 sensor node.
const (
	SensorActivate   = "ACTIVATETEMPSEN"
	SensorDeactivate = "DEACTIVATETEMPSEN"
)

// SelectorMote routes a command to the Mote instead of the sensor node.
const SelectorMote = "Mote"

// Command targets, used in logs and metrics.
const (
	targetMote   = "mote"
	targetSensor = "sensor"
)

// Publisher is the part of the MQTT client the commander needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos mqtt.QoS, retained bool) error
}

// CommandRequest is a command issued by a web client.
type CommandRequest struct {
	// Dev selects the target: "Mote" or anything else for the sensor node.
	Dev string `json:"dev"`
	// Opr is the operation. Passed verbatim to the Mote; "on" or not-"on" for the sensor.
	Opr string `json:"opr"`
}

// Commander translates command requests into publishes.
type Commander struct {
	client        Publisher
	deviceCommand string
	sensorCommand string
	qos           mqtt.QoS
	metrics       *metrics.Metrics
	logger        Logger
}

// NewCommander creates a commander publishing at qos to the command topics under topics.
func NewCommander(client Publisher, topics mqtt.Topics, qos mqtt.QoS, m *metrics.Metrics, logger Logger) *Commander {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Commander{
		client:        client,
		deviceCommand: topics.DeviceCommand(),
		sensorCommand: topics.SensorCommand(),
		qos:           qos,
		metrics:       m,
		logger:        logger,
	}
}

// Resolve returns the topic and payload a request maps to without publishing.
//
//   - Dev "Mote": Opr verbatim (possibly empty) to the device command topic
//   - otherwise, Opr "on": ACTIVATETEMPSEN to the sensor command topic
//   - otherwise: DEACTIVATETEMPSEN to the sensor command topic
func (c *Commander) Resolve(req CommandRequest) (topic, payload string) {
	if req.Dev == SelectorMote {
		return c.deviceCommand, req.Opr
	}
	if req.Opr == "on" {
		return c.sensorCommand, SensorActivate
	}
	return c.sensorCommand, SensorDeactivate
}

// Dispatch publishes the command for req, not retained.
//
// Returns an error wrapping ErrDispatchFailed and the mqtt cause,
// e.g. mqtt.ErrNotConnected while the broker link is down.
func (c *Commander) Dispatch(req CommandRequest) error {
	topic, payload := c.Resolve(req)

	target := targetSensor
	if req.Dev == SelectorMote {
		target = targetMote
	}

	if err := c.client.Publish(topic, []byte(payload), c.qos, false); err != nil {
		result := metrics.ResultFailed
		if errors.Is(err, mqtt.ErrNotConnected) {
			result = metrics.ResultNotConnected
		}
		c.metrics.Command(target, result)
		c.logger.Warn("command dispatch failed",
			"dev", req.Dev,
			"opr", req.Opr,
			"topic", topic,
			"error", err,
		)
		return fmt.Errorf("%w: %s: %w", ErrDispatchFailed, topic, err)
	}

	c.metrics.Command(target, metrics.ResultOK)
	c.logger.Info("command dispatched", "dev", req.Dev, "opr", req.Opr, "topic", topic, "payload", payload)
	return nil
}

package mqtt

import "strings"

// DefaultNamespace is the topic prefix used by the deployed devices.
const DefaultNamespace = "/iot"

// Topic suffixes below the namespace.
const (
	suffixDeviceReply   = "/zolertia/reply"
	suffixDeviceData    = "/zolertia/data"
	suffixDeviceCommand = "/zolertia/cmd"
	suffixSensorReply   = "/sensor/reply"
	suffixSensorCommand = "/sensor/cmd"
)

// Topics provides builders for the bridge's fixed topic set.
// Using these helpers keeps subscriber and publisher topics consistent.
//
//	topics := mqtt.NewTopics("/iot")
//	topics.DeviceReply() // "/iot/zolertia/reply"
type Topics struct {
	namespace string
}

// NewTopics returns builders rooted at namespace. A trailing slash is ignored.
func NewTopics(namespace string) Topics {
	return Topics{namespace: strings.TrimSuffix(namespace, "/")}
}

// Namespace returns the prefix every topic starts with.
func (t Topics) Namespace() string {
	return t.namespace
}

// DeviceReply returns the topic the Mote acknowledges on/off commands on.
//
// Example: /iot/zolertia/reply
func (t Topics) DeviceReply() string {
	return t.namespace + suffixDeviceReply
}

// DeviceData returns the Mote telemetry topic.
//
// Example: /iot/zolertia/data
func (t Topics) DeviceData() string {
	return t.namespace + suffixDeviceData
}

// DeviceCommand returns the topic Mote commands are published to.
//
// Example: /iot/zolertia/cmd
func (t Topics) DeviceCommand() string {
	return t.namespace + suffixDeviceCommand
}

// SensorReply returns the topic the temperature sensor acknowledges on.
//
// Example: /iot/sensor/reply
func (t Topics) SensorReply() string {
	return t.namespace + suffixSensorReply
}

// SensorCommand returns the temperature sensor command topic.
//
// Example: /iot/sensor/cmd
func (t Topics) SensorCommand() string {
	return t.namespace + suffixSensorCommand
}

package mqtt

// QoS is an MQTT delivery guarantee level.
type QoS byte

// QoS levels.
const (
	QoSAtMostOnce  QoS = 0
	QoSAtLeastOnce QoS = 1
	QoSExactlyOnce QoS = 2
)

// Valid reports whether q is 0, 1 or 2.
func (q QoS) Valid() bool {
	return q <= QoSExactlyOnce
}

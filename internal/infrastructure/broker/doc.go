// Package broker embeds a mochi-mqtt broker so the bridge can run without
// an external Mosquitto during development, and so tests can exercise real
// MQTT traffic in-process.
//
// Enable it with:
//
//	broker:
//	  embedded: true
//	  address: ":1883"
package broker

// Package mqtt provides the broker connection for the Mote bridge.
//
// This package manages:
//   - A single clean-session connection to the broker
//   - Fixed-interval reconnection driven by a supervisor goroutine
//   - Message publishing with a drop-on-disconnect policy
//   - Subscriptions whose messages arrive on one buffered channel
//   - Connection state events and health checks
//
// # Architecture
//
// The Zolertia Mote and the BME280 sensor node talk to the broker; the bridge
// sits between the broker and the web clients.
//
//	Devices ↔ MQTT Broker ↔ Mote Bridge ↔ Web Clients
//
// # Connection Lifecycle
//
//	Disconnected --connect ok--> OnConnect hook --> Connected
//	Connected --link lost--> Disconnected --wait delay--> connect again
//
// The hook is awaited, so by the time IsConnected returns true every
// subscription issued from it has been acknowledged. Paho's own reconnect
// is disabled; it would back off exponentially.
//
// # Usage
//
//	client, err := mqtt.New(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics.Namespace)
//	client.SetOnConnect(func(ctx context.Context) {
//	    _ = client.Subscribe(topics.DeviceReply(), mqtt.QoSAtLeastOnce)
//	})
//	if err := client.Start(ctx); err != nil {
//	    return err
//	}
//
//	for msg := range client.Messages() {
//	    log.Printf("received %s = %q", msg.Topic, msg.Payload)
//	}
//
// # Security Considerations
//
//   - TLS (ssl://, TLS 1.2 minimum) is enabled with cfg.Broker.TLS
//   - Credentials are optional; the deployed broker allows anonymous access
package mqtt

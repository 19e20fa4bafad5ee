package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/iot-demo/mote-bridge/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for one connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultOperationTimeout bounds every publish and subscribe acknowledgement wait.
	defaultOperationTimeout = 5 * time.Second

	// defaultReconnectDelay is the fixed pause between connection attempts.
	defaultReconnectDelay = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// defaultInboundBuffer is the capacity of the inbound message channel.
	defaultInboundBuffer = 256

	// stateBuffer is the capacity of the connection event channel.
	stateBuffer = 16

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// brokerURL returns the paho broker URL for the configured endpoint.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// NewClientID returns a process-unique client identifier of the form prefix-uuid.
func NewClientID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

// resolveClientID returns the configured client ID, generating one if empty.
func resolveClientID(cfg config.MQTTConfig) string {
	if cfg.Broker.ClientID != "" {
		return cfg.Broker.ClientID
	}
	return NewClientID(cfg.Broker.ClientIDPrefix)
}

// buildClientOptions creates paho MQTT options from bridge config.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Clean session mode
//   - TLS configuration (if enabled)
//
// Paho's own reconnect logic is switched off. It grows its delay
// exponentially, while the bridge retries at a fixed interval from
// Client.supervise.
func buildClientOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(clientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session - subscriptions are re-issued by the bridge on every connect
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	connectTimeout := cfg.Reconnect.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	opts.SetConnectTimeout(connectTimeout)
	opts.SetWriteTimeout(defaultOperationTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	// Deliver inbound messages in arrival order so last-write-wins follows the broker
	opts.SetOrderMatters(true)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// reconnectDelay returns the configured fixed retry interval.
func reconnectDelay(cfg config.MQTTConfig) time.Duration {
	if cfg.Reconnect.Delay <= 0 {
		return defaultReconnectDelay
	}
	return cfg.Reconnect.Delay
}

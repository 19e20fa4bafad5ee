// Mote Bridge - MQTT to web client gateway
//
// This is the main entry point for the Mote bridge. It connects to the MQTT
// broker shared with a Zolertia Mote and a BME280 sensor node and:
//   - Relays device acknowledgements to browsers over WebSocket
//   - Stores the latest Mote telemetry for the HTTP API
//   - Publishes on/off commands submitted by browsers
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iot-demo/mote-bridge/internal/api"
	"github.com/iot-demo/mote-bridge/internal/bridge"
	"github.com/iot-demo/mote-bridge/internal/device"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/broker"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/config"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/logging"
	"github.com/iot-demo/mote-bridge/internal/infrastructure/mqtt"
	"github.com/iot-demo/mote-bridge/internal/metrics"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// startupWait bounds how long run waits for the first broker connection
// before serving in degraded mode.
const startupWait = 5 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Mote bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Start the in-process broker (development only)
	if cfg.Broker.Embedded {
		embedded, brokerErr := startBroker(cfg.Broker, log)
		if brokerErr != nil {
			return fmt.Errorf("starting embedded broker: %w", brokerErr)
		}
		defer func() {
			log.Info("stopping embedded broker")
			if closeErr := embedded.Close(); closeErr != nil {
				log.Error("error stopping embedded broker", "error", closeErr)
			}
		}()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// WebSocket hub receives every acknowledgement event
	hub := api.NewHub(log.With("component", "websocket"), m)

	// MQTT client
	mqttClient, err := mqtt.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating MQTT client: %w", err)
	}
	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	// Bridge must be started before the client so the subscription hook
	// is installed for the first connect.
	topics := mqtt.NewTopics(cfg.MQTT.Topics.Namespace)
	br, err := bridge.New(bridge.Options{
		Client:  mqttClient,
		Sink:    hub,
		Store:   device.NewStore(),
		Topics:  topics,
		QoS:     mqtt.QoS(cfg.MQTT.QoS),
		Metrics: m,
		Logger:  log.With("component", "bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := br.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer br.Stop()

	if err := mqttClient.Start(ctx); err != nil {
		return fmt.Errorf("starting MQTT client: %w", err)
	}
	log.Info("MQTT client started",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
		"namespace", topics.Namespace(),
	)

	// API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Metrics:  cfg.Metrics,
		Logger:   log,
		Bridge:   br,
		Hub:      hub,
		Gatherer: registry,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// The bridge keeps serving while the broker is unreachable
	if err := healthCheck(ctx, mqttClient, apiServer); err != nil {
		log.Warn("starting in degraded mode", "error", err)
	} else {
		log.Info("all health checks passed")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (also stops the WebSocket hub)
	// 2. Bridge
	// 3. MQTT client
	// 4. Embedded broker (if enabled)

	log.Info("Mote bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MOTEBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MOTEBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startBroker creates and starts the embedded MQTT broker.
func startBroker(cfg config.BrokerConfig, log *logging.Logger) (*broker.Broker, error) {
	b, err := broker.New(cfg, log.Logger)
	if err != nil {
		return nil, err
	}
	if err := b.Start(); err != nil {
		return nil, err
	}
	log.Info("embedded MQTT broker started", "address", b.Address())
	return b, nil
}

// healthCheck waits briefly for the first broker connection and verifies
// the API server is up.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, apiServer *api.Server) error {
	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, startupWait)
	defer cancel()
	if err := mqttClient.WaitConnected(waitCtx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	return nil
}

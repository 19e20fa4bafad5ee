// Package api implements the HTTP API and WebSocket server for the Mote bridge.
//
// This package provides:
//   - A command endpoint that forwards {dev, opr} requests to the broker
//   - A read endpoint for the latest Mote telemetry
//   - A WebSocket hub that fans out acknowledgement events to every client
//   - Health and Prometheus endpoints
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Routes
//
//	POST /api/v1/commands           {"dev":"Mote","opr":"LEDON"}
//	POST /?handler=PostOperation    same body, legacy page form
//	GET  /api/v1/devices/state      latest telemetry or 404
//	GET  /api/v1/health             200 when the broker link is up, else 503
//	GET  /api/v1/system/metrics     runtime and connection summary (JSON)
//	GET  /metrics                   Prometheus exposition
//	GET  /ws                        WebSocket event stream
//
// # Graceful Degradation
//
// The server keeps running while the broker is unreachable. Reads and
// WebSocket connections work; commands fail with 503 broker_unavailable.
package api

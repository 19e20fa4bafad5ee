package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDecodeFailed) {
//	    // payload was not a JSON object
//	}
var (
	// ErrDecodeFailed is returned when a telemetry payload is not a JSON object.
	ErrDecodeFailed = errors.New("device: decode failed")

	// ErrNoState is returned when no telemetry has been received yet.
	ErrNoState = errors.New("device: no state received")
)

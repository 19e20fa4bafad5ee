package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrDispatchFailed is returned when a command could not be published.
	// The underlying mqtt error stays reachable through errors.Is.
	ErrDispatchFailed = errors.New("bridge: dispatch failed")

	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("bridge: already started")
)

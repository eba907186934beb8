package backend

import "errors"

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoAdapter is returned when a backend enumerates no adapters.
	ErrNoAdapter = errors.New("backend: no adapter found")

	// ErrClosed is returned when a closed device is used.
	ErrClosed = errors.New("backend: device closed")
)

package resource

import "errors"

var (
	// ErrLedgerEmpty is returned by PopTransition when no transition is pending.
	ErrLedgerEmpty = errors.New("resource: no pending transition")

	// ErrLedgerPending is returned by ResetImageLayout while transitions
	// logged this frame have not been consumed.
	ErrLedgerPending = errors.New("resource: transitions still pending")

	// ErrInvalidLayout is returned when a usage maps to a layout an image
	// cannot be transitioned into.
	ErrInvalidLayout = errors.New("resource: invalid target layout")

	// ErrStaleHandle is returned when a handle outlived its slot.
	ErrStaleHandle = errors.New("resource: stale handle")

	// ErrNotInitialized is returned when GPU objects of an image are used
	// before Init.
	ErrNotInitialized = errors.New("resource: image not initialized")

	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("resource: image already initialized")

	// ErrInvalidExtent is returned by Init for a zero-sized image.
	ErrInvalidExtent = errors.New("resource: invalid extent")
)

package deferred

import "errors"

var (
	// ErrNoScene is returned by New without a scene.
	ErrNoScene = errors.New("deferred: nil scene")

	// ErrDestroyed is returned by Frame after Destroy.
	ErrDestroyed = errors.New("deferred: scheduler destroyed")
)

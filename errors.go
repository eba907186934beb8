package framegraph

import "errors"

// Errors shared by the framegraph sub-packages.
var (
	// ErrCapacityExceeded is returned by every fixed-capacity container
	// (attachment groups, transition ledgers, child lists, ignore sets,
	// parameter groups) when an insertion would overflow it.
	ErrCapacityExceeded = errors.New("framegraph: capacity exceeded")

	// ErrWorkgroupDivisibility is returned when a voxel volume edge is not
	// divisible by the compute workgroup size at some mip level.
	ErrWorkgroupDivisibility = errors.New("framegraph: voxel edge not divisible by workgroup size")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("framegraph: invalid config")
)

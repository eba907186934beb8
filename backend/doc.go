// Package backend selects a HAL backend and opens a device on it.
//
// Backends register themselves by name on package import. The Vulkan
// backend is compiled in unless the nogpu build tag is set; the noop
// backend is always available and runs the whole frame graph headless:
//
//	dev, err := backend.Open("")     // best available
//	dev, err := backend.Open("noop") // headless
//
// # Backend Selection
//
// Open with an empty name walks the priority list (vulkan, noop) and
// returns the first backend that yields a usable adapter. A named backend
// is opened as is and fails with ErrBackendNotAvailable when it is not
// registered.
//
// # Device Provider
//
// The returned Device implements gpucontext.DeviceProvider, so it can be
// shared with other gogpu libraries. Frame graph code uses HAL to reach the
// hal.Device and hal.Queue directly.
package backend

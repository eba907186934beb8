package backend

import (
	"fmt"
	"sort"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Backend name constants.
const (
	// Vulkan is the Pure Go Vulkan backend.
	Vulkan = "vulkan"
	// Noop is the in-process backend that accepts every call and draws
	// nothing. It is always registered.
	Noop = "noop"
)

// backends holds the registered HAL backends, best first.
var backends = gpucontext.NewRegistry[hal.Backend](
	gpucontext.WithPriority(Vulkan, Noop),
)

func init() {
	Register(Noop, noop.API{})
}

// Register makes a HAL backend available under name.
// Registering an existing name replaces the previous backend.
func Register(name string, b hal.Backend) {
	backends.Register(name, func() hal.Backend { return b })
}

// Unregister removes a backend from the registry.
// Mainly useful for tests.
func Unregister(name string) {
	backends.Unregister(name)
}

// Available returns the names of all registered backends, sorted.
func Available() []string {
	names := backends.Available()
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Get returns the backend registered under name.
func Get(name string) (hal.Backend, error) {
	if !backends.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return backends.Get(name), nil
}

// DefaultName returns the name of the highest priority registered backend.
func DefaultName() string {
	return backends.BestName()
}

// candidates returns the names Open tries for name, in order.
func candidates(name string) []string {
	if name != "" {
		return []string{name}
	}
	var names []string
	for _, n := range []string{Vulkan, Noop} {
		if backends.Has(n) {
			names = append(names, n)
		}
	}
	for _, n := range Available() {
		if n != Vulkan && n != Noop {
			names = append(names, n)
		}
	}
	return names
}

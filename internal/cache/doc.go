// Package cache provides a generic LRU cache with an eviction callback.
//
// The material store keeps compiled shader modules in it, keyed by shader
// label, and destroys modules as they are evicted:
//
//	modules := cache.New[string, hal.ShaderModule](64, func(_ string, m hal.ShaderModule) {
//	    device.DestroyShaderModule(m)
//	})
//	mod, err := modules.GetOrCreate("voxelizer", compile)
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache

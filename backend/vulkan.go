//go:build !nogpu

package backend

import "github.com/gogpu/wgpu/hal/vulkan"

func init() {
	Register(Vulkan, vulkan.Backend{})
}

package material

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// UniformBuffer is a GPU buffer filled from parameter groups.
type UniformBuffer struct {
	buf  hal.Buffer
	size uint64
}

// NewUniformBuffer creates a uniform buffer of size bytes.
func NewUniformBuffer(device hal.Device, label string, size uint64) (*UniformBuffer, error) {
	size = max((size+15)/16*16, 16)
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer %s: %w", label, err)
	}
	return &UniformBuffer{buf: buf, size: size}, nil
}

// NewDynamicBuffer creates a buffer holding count blocks at DynamicStride.
func NewDynamicBuffer(device hal.Device, label string, count int) (*UniformBuffer, error) {
	return NewUniformBuffer(device, label, uint64(max(count, 1))*DynamicStride)
}

// Buffer returns the HAL buffer.
func (u *UniformBuffer) Buffer() hal.Buffer { return u.buf }

// Size returns the buffer size in bytes.
func (u *UniformBuffer) Size() uint64 { return u.size }

// Binding returns a binding resource over the first size bytes.
func (u *UniformBuffer) Binding(size uint64) gputypes.BufferBinding {
	return gputypes.BufferBinding{Buffer: u.buf.NativeHandle(), Size: min(size, u.size)}
}

// Upload writes the std140 image of g at offset.
func (u *UniformBuffer) Upload(queue hal.Queue, offset uint64, g *ParamGroup) error {
	data := g.Serialize()
	if offset+uint64(len(data)) > u.size {
		return fmt.Errorf("uniform upload of %d bytes at %d into %d: %w", len(data), offset, u.size, framegraph.ErrCapacityExceeded)
	}
	if err := queue.WriteBuffer(u.buf, offset, data); err != nil {
		return fmt.Errorf("uniform upload: %w", err)
	}
	return nil
}

// UploadObject writes the parameter block of object i in a dynamic buffer.
func (u *UniformBuffer) UploadObject(queue hal.Queue, i int, g *ParamGroup) error {
	return u.Upload(queue, uint64(i)*DynamicStride, g)
}

// Destroy releases the buffer.
func (u *UniformBuffer) Destroy(device hal.Device) {
	if u.buf != nil {
		device.DestroyBuffer(u.buf)
		u.buf = nil
	}
}

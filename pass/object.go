package pass

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"
)

// Mesh is an indexed vertex buffer pair.
type Mesh struct {
	Vertices    hal.Buffer
	Indices     hal.Buffer
	IndexFormat gputypes.IndexFormat
	IndexCount  uint32
}

// NewMesh uploads interleaved vertex floats and 32-bit indices into new
// buffers.
func NewMesh(device hal.Device, queue hal.Queue, label string, vertices []float32, indices []uint32) (Mesh, error) {
	vb := make([]byte, 4*len(vertices))
	for i, v := range vertices {
		binary.LittleEndian.PutUint32(vb[4*i:], math.Float32bits(v))
	}
	ib := make([]byte, 4*len(indices))
	for i, v := range indices {
		binary.LittleEndian.PutUint32(ib[4*i:], v)
	}
	var m Mesh
	var err error
	if m.Vertices, err = newBuffer(device, queue, label+"_vertices", gputypes.BufferUsageVertex, vb); err != nil {
		return Mesh{}, err
	}
	if m.Indices, err = newBuffer(device, queue, label+"_indices", gputypes.BufferUsageIndex, ib); err != nil {
		device.DestroyBuffer(m.Vertices)
		return Mesh{}, err
	}
	m.IndexFormat = gputypes.IndexFormatUint32
	m.IndexCount = uint32(len(indices))
	return m, nil
}

func newBuffer(device hal.Device, queue hal.Queue, label string, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	size := max(uint64(len(data)+3)/4*4, 4)
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write buffer %s: %w", label, err)
	}
	return buf, nil
}

// Destroy releases the mesh buffers.
func (m *Mesh) Destroy(device hal.Device) {
	if m.Vertices != nil {
		device.DestroyBuffer(m.Vertices)
		m.Vertices = nil
	}
	if m.Indices != nil {
		device.DestroyBuffer(m.Indices)
		m.Indices = nil
	}
}

// Object is something drawn by a subpass: a model transform and meshes.
type Object interface {
	Transform() f32.Mat4
	Meshes() []Mesh
}

// ObjectMask returns the subpasses, as a bitmask, an object is drawn in.
type ObjectMask func(obj int) uint32

// StaticObject is an Object with a fixed transform.
type StaticObject struct {
	Model f32.Mat4
	Parts []Mesh
}

// Transform returns the model matrix.
func (o *StaticObject) Transform() f32.Mat4 { return o.Model }

// Meshes returns the meshes.
func (o *StaticObject) Meshes() []Mesh { return o.Parts }

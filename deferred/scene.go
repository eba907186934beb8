package deferred

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/framegraph/pass"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"
)

// Scene is what the scheduler renders. Objects are drawn by both the
// voxelizer and the g-buffer. ViewProj is the camera and may change
// between frames. Sky is shown behind the geometry; nil selects
// DefaultSky.
type Scene struct {
	Objects  []pass.Object
	ViewProj f32.Mat4
	Sky      image.Image
}

// Destroy releases the meshes of every object.
func (s *Scene) Destroy(device hal.Device) {
	for _, o := range s.Objects {
		for _, m := range o.Meshes() {
			m.Destroy(device)
		}
	}
	s.Objects = nil
}

var cubeFaces = [6]struct{ normal, u, v mgl32.Vec3 }{
	{normal: mgl32.Vec3{1, 0, 0}, u: mgl32.Vec3{0, 0, -1}, v: mgl32.Vec3{0, 1, 0}},
	{normal: mgl32.Vec3{-1, 0, 0}, u: mgl32.Vec3{0, 0, 1}, v: mgl32.Vec3{0, 1, 0}},
	{normal: mgl32.Vec3{0, 1, 0}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 0, -1}},
	{normal: mgl32.Vec3{0, -1, 0}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 0, 1}},
	{normal: mgl32.Vec3{0, 0, 1}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 1, 0}},
	{normal: mgl32.Vec3{0, 0, -1}, u: mgl32.Vec3{-1, 0, 0}, v: mgl32.Vec3{0, 1, 0}},
}

// CubeGeometry returns the interleaved vertices and indices of a unit
// cube centered at the origin, in the layout of material.MeshVertexLayout.
// Faces wind counter-clockwise seen from outside.
func CubeGeometry(color [4]float32) ([]float32, []uint32) {
	vertices := make([]float32, 0, 6*4*10)
	indices := make([]uint32, 0, 6*6)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, f := range cubeFaces {
		for _, c := range corners {
			for k := range 3 {
				p := 0.5*f.normal[k] + 0.5*c[0]*f.u[k] + 0.5*c[1]*f.v[k]
				vertices = append(vertices, p)
			}
			vertices = append(vertices, f.normal[0], f.normal[1], f.normal[2])
			vertices = append(vertices, color[:]...)
		}
		base := uint32(4 * i)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// NewCube uploads a cube of edge size centered at center.
func NewCube(device hal.Device, queue hal.Queue, label string, center mgl32.Vec3, size float32, color [4]float32) (*pass.StaticObject, error) {
	vertices, indices := CubeGeometry(color)
	mesh, err := pass.NewMesh(device, queue, label, vertices, indices)
	if err != nil {
		return nil, fmt.Errorf("cube %s: %w", label, err)
	}
	return &pass.StaticObject{
		Model: ToMat4(mgl32.Translate3D(center[0], center[1], center[2]).Mul4(mgl32.Scale3D(size, size, size))),
		Parts: []pass.Mesh{mesh},
	}, nil
}

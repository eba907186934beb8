package deferred

import (
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/f32"
)

// DispatchSize returns the workgroup count along each axis needed to cover
// mip level of a cubic volume with edge texels at LOD 0.
func DispatchSize(edge uint32, level int, local uint32) uint32 {
	return (edge >> uint(level)) / local
}

// View is one of the fixed orthographic voxelization views.
type View struct {
	Eye      mgl32.Vec3
	Up       mgl32.Vec3
	ViewProj f32.Mat4
}

var voxelViews = [3]struct{ eye, up mgl32.Vec3 }{
	{eye: mgl32.Vec3{0, 0, -8}, up: mgl32.Vec3{0, 1, 0}},
	{eye: mgl32.Vec3{0, 8, 0}, up: mgl32.Vec3{-1, 0, 0}},
	{eye: mgl32.Vec3{8, 0, 0}, up: mgl32.Vec3{0, 1, 0}},
}

// VoxelViews returns the three views the scene is voxelized from. Each
// looks at the origin and its projection covers a cube of worldSize.
func VoxelViews(worldSize float32) [3]View {
	var views [3]View
	h := worldSize / 2
	for i, v := range voxelViews {
		dist := v.eye.Len()
		proj := Ortho(-h, h, -h, h, max(dist-h, 0.01), dist+h)
		views[i] = View{
			Eye:      v.eye,
			Up:       v.up,
			ViewProj: ToMat4(proj.Mul4(mgl32.LookAtV(v.eye, mgl32.Vec3{}, v.up))),
		}
	}
	return views
}

// zeroToOneDepth remaps clip space depth from [-w, w] to [0, w].
var zeroToOneDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Ortho returns an orthographic projection mapping depth to [0, 1], the
// clip space range of the HAL.
func Ortho(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	return zeroToOneDepth.Mul4(mgl32.Ortho(left, right, bottom, top, near, far))
}

// ToMat4 converts a column-major mgl32 matrix into the row-major f32.Mat4
// that shader parameters carry.
func ToMat4(m mgl32.Mat4) f32.Mat4 {
	return f32.Mat4(m.Transpose())
}

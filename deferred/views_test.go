package deferred

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/f32"
)

func TestDispatchSize(t *testing.T) {
	tests := []struct {
		edge  uint32
		local uint32
		want  []uint32
	}{
		{edge: 256, local: 8, want: []uint32{32, 16, 8, 4, 2, 1}},
		{edge: 32, local: 8, want: []uint32{4, 2, 1}},
		{edge: 64, local: 4, want: []uint32{16, 8, 4, 2, 1}},
	}
	for _, tt := range tests {
		for level, want := range tt.want {
			if got := DispatchSize(tt.edge, level, tt.local); got != want {
				t.Errorf("DispatchSize(%d, %d, %d) = %d, want %d", tt.edge, level, tt.local, got, want)
			}
		}
	}
}

func TestOrthoDepthRange(t *testing.T) {
	m := ToMat4(Ortho(-1, 1, -1, 1, 2, 6))
	for _, tt := range []struct{ z, want float32 }{{-2, 0}, {-4, 0.5}, {-6, 1}} {
		if p := project(m, mgl32.Vec3{0, 0, tt.z}); !near(p[2], tt.want) {
			t.Errorf("depth of z=%v = %v, want %v", tt.z, p[2], tt.want)
		}
	}
}

func TestToMat4RowMajor(t *testing.T) {
	m := ToMat4(mgl32.Translate3D(1, 2, 3))
	if m[3] != 1 || m[7] != 2 || m[11] != 3 || m[15] != 1 {
		t.Errorf("translation not in the last column: %v", m)
	}
}

func TestVoxelViewsCoverVolume(t *testing.T) {
	const worldSize = 10
	h := float32(worldSize / 2)
	for i, v := range VoxelViews(worldSize) {
		o := project(v.ViewProj, mgl32.Vec3{})
		if !near(o[0], 0) || !near(o[1], 0) || !near(o[3], 1) {
			t.Errorf("view %d: origin maps to %v, want screen center", i, o)
		}
		if o[2] <= 0 || o[2] >= 1 {
			t.Errorf("view %d: origin depth %v outside (0, 1)", i, o[2])
		}
		for _, x := range []float32{-h, h} {
			for _, y := range []float32{-h, h} {
				for _, z := range []float32{-h, h} {
					p := project(v.ViewProj, mgl32.Vec3{x, y, z})
					for k, lim := range [3][2]float32{{-1, 1}, {-1, 1}, {0, 1}} {
						if p[k] < lim[0]-1e-4 || p[k] > lim[1]+1e-4 {
							t.Errorf("view %d: corner (%v, %v, %v) axis %d = %v outside %v", i, x, y, z, k, p[k], lim)
						}
					}
				}
			}
		}
	}
}

func TestVoxelViewsDistinctAxes(t *testing.T) {
	views := VoxelViews(10)
	for i := range views {
		for j := i + 1; j < len(views); j++ {
			d := views[i].Eye.Normalize()
			e := views[j].Eye.Normalize()
			if math.Abs(float64(d.Dot(e))) > 1e-6 {
				t.Errorf("views %d and %d are not orthogonal: %v, %v", i, j, views[i].Eye, views[j].Eye)
			}
		}
	}
}

func TestCubeGeometry(t *testing.T) {
	vertices, indices := CubeGeometry([4]float32{1, 1, 1, 1})
	if len(vertices) != 24*10 {
		t.Fatalf("vertices = %d floats, want %d", len(vertices), 24*10)
	}
	if len(indices) != 36 {
		t.Fatalf("indices = %d, want 36", len(indices))
	}
	for i := 0; i < len(vertices); i += 10 {
		p := mgl32.Vec3{vertices[i], vertices[i+1], vertices[i+2]}
		n := mgl32.Vec3{vertices[i+3], vertices[i+4], vertices[i+5]}
		if !near(p.Dot(n), 0.5) {
			t.Errorf("vertex %d at %v does not lie on its face %v", i/10, p, n)
		}
	}
	for tri := 0; tri < len(indices); tri += 3 {
		var ps [3]mgl32.Vec3
		for k := range 3 {
			v := indices[tri+k] * 10
			ps[k] = mgl32.Vec3{vertices[v], vertices[v+1], vertices[v+2]}
		}
		v := indices[tri] * 10
		n := mgl32.Vec3{vertices[v+3], vertices[v+4], vertices[v+5]}
		if ps[1].Sub(ps[0]).Cross(ps[2].Sub(ps[0])).Dot(n) <= 0 {
			t.Errorf("triangle %d winds clockwise seen from outside", tri/3)
		}
	}
}

// project applies a row-major view-projection to the point p.
func project(m f32.Mat4, p mgl32.Vec3) mgl32.Vec4 {
	return mgl32.Mat4(m).Transpose().Mul4x1(p.Vec4(1))
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

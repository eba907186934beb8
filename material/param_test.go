package material

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
	"golang.org/x/image/math/f32"
)

func TestParamGroupLayout(t *testing.T) {
	tests := []struct {
		name    string
		params  []Param
		offsets []int
		size    int
	}{
		{"mat4 then floats", []Param{Mat4(Identity()), Float(1), Float(2)}, []int{0, 64, 68}, 80},
		{"float then vec3", []Param{Float(1), Vec3(f32.Vec3{1, 2, 3})}, []int{0, 16}, 32},
		{"vec2 after float", []Param{Float(1), Vec2(f32.Vec2{1, 2})}, []int{0, 8}, 16},
		{"scalars", []Param{Int(-1), UInt(2), Bool(true)}, []int{0, 4, 8}, 16},
		{"vec4 after bool", []Param{Bool(false), Vec4(f32.Vec4{1, 2, 3, 4})}, []int{0, 16}, 32},
		{"sampler takes no space", []Param{Float(1), Sampler3D(resource.Handle{}), Float(2)}, []int{0, -1, 4}, 16},
		{"raw bytes", []Param{RawBytes([]byte{1, 2, 3})}, []int{0}, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewParamGroup()
			for i, p := range tt.params {
				if err := g.Set(string(rune('a'+i)), p); err != nil {
					t.Fatalf("Set: %v", err)
				}
			}
			if got := g.Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
			if got := len(g.Serialize()); got != tt.size {
				t.Errorf("len(Serialize()) = %d, want %d", got, tt.size)
			}
			// Each float param carries a distinct value; find it at its offset.
			data := g.Serialize()
			for i, p := range tt.params {
				if p.Kind() != KindFloat || tt.offsets[i] < 0 {
					continue
				}
				got := math.Float32frombits(binary.LittleEndian.Uint32(data[tt.offsets[i]:]))
				if got != p.AsFloat() {
					t.Errorf("param %d at %d = %v, want %v", i, tt.offsets[i], got, p.AsFloat())
				}
			}
		})
	}
}

func TestMat4ColumnMajor(t *testing.T) {
	m := f32.Mat4{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	g := NewParamGroup()
	if err := g.Set("m", Mat4(m)); err != nil {
		t.Fatal(err)
	}
	data := g.Serialize()
	want := []float32{1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15, 4, 8, 12, 16}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if got != w {
			t.Fatalf("word %d = %v, want %v", i, got, w)
		}
	}
}

func TestParamKindMismatch(t *testing.T) {
	g := NewParamGroup()
	if err := g.Set("x", Float(1)); err != nil {
		t.Fatal(err)
	}
	if err := g.Set("x", Int(1)); !errors.Is(err, ErrParamKindMismatch) {
		t.Fatalf("Set with new kind = %v, want ErrParamKindMismatch", err)
	}
	if err := g.Set("x", Float(3)); err != nil {
		t.Fatalf("Set with same kind: %v", err)
	}
	p, _ := g.Get("x")
	if p.AsFloat() != 3 {
		t.Errorf("x = %v, want 3", p.AsFloat())
	}
}

func TestParamGroupCapacity(t *testing.T) {
	g := NewParamGroup()
	for i := range MaxGroupSize / 64 {
		if err := g.Set(string(rune('a'+i)), Mat4(Identity())); err != nil {
			t.Fatalf("mat4 %d: %v", i, err)
		}
	}
	if got := g.Size(); got != MaxGroupSize {
		t.Fatalf("Size() = %d, want %d", got, MaxGroupSize)
	}
	if err := g.Set("overflow", Float(1)); !errors.Is(err, framegraph.ErrCapacityExceeded) {
		t.Fatalf("Set past capacity = %v, want ErrCapacityExceeded", err)
	}
	if _, ok := g.Get("overflow"); ok {
		t.Error("rejected parameter was kept")
	}
	if g.Len() != MaxGroupSize/64 {
		t.Errorf("Len() = %d after rejected Set", g.Len())
	}
}

func TestParamGroupTextures(t *testing.T) {
	h := resource.Handle{Kind: resource.KindTexture3D, Index: 2, Generation: 1}
	g := NewParamGroup()
	mustSet(t, g, "scale", Float(1))
	mustSet(t, g, "voxels", Sampler3D(h))
	tex := g.Textures()
	if len(tex) != 1 || tex[0].Name != "voxels" || tex[0].Handle != h || tex[0].Kind != KindSampler3D {
		t.Fatalf("Textures() = %+v", tex)
	}
}

func TestParamGroupClone(t *testing.T) {
	g := NewParamGroup()
	mustSet(t, g, "raw", RawBytes([]byte{1, 2}))
	c := g.Clone()
	mustSet(t, c, "raw", RawBytes([]byte{9, 9}))
	mustSet(t, c, "extra", Float(1))
	if p, ok := g.Get("raw"); !ok || p.raw[0] != 1 {
		t.Error("clone shares raw bytes with the original")
	}
	if g.Len() != 1 {
		t.Errorf("original Len() = %d, want 1", g.Len())
	}
}

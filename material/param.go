package material

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/framegraph/resource"
	"golang.org/x/image/math/f32"
)

// ParamKind tags the value held by a Param.
type ParamKind uint8

const (
	KindMat4 ParamKind = iota
	KindVec4
	KindVec3
	KindVec2
	KindFloat
	KindInt
	KindUInt
	KindBool
	KindSampler2D
	KindSampler3D
	KindRawBytes
)

var paramKindNames = [...]string{
	KindMat4:      "mat4",
	KindVec4:      "vec4",
	KindVec3:      "vec3",
	KindVec2:      "vec2",
	KindFloat:     "float",
	KindInt:       "int",
	KindUInt:      "uint",
	KindBool:      "bool",
	KindSampler2D: "sampler2D",
	KindSampler3D: "sampler3D",
	KindRawBytes:  "bytes",
}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return fmt.Sprintf("ParamKind(%d)", k)
}

// Param is a shader parameter. It holds exactly one value of the kind
// reported by Kind; construct it with the kind's constructor.
type Param struct {
	kind ParamKind
	m    f32.Mat4 // Mat4, and the components of Vec4/Vec3/Vec2
	i    int32
	u    uint32
	tex  resource.Handle
	raw  []byte
}

// Mat4 returns a matrix parameter. m is row-major, as in x/image/math/f32.
func Mat4(m f32.Mat4) Param { return Param{kind: KindMat4, m: m} }

// Vec4 returns a four-component vector parameter.
func Vec4(v f32.Vec4) Param {
	p := Param{kind: KindVec4}
	copy(p.m[:4], v[:])
	return p
}

// Vec3 returns a three-component vector parameter.
func Vec3(v f32.Vec3) Param {
	p := Param{kind: KindVec3}
	copy(p.m[:3], v[:])
	return p
}

// Vec2 returns a two-component vector parameter.
func Vec2(v f32.Vec2) Param {
	p := Param{kind: KindVec2}
	copy(p.m[:2], v[:])
	return p
}

// Float returns a scalar parameter.
func Float(v float32) Param {
	p := Param{kind: KindFloat}
	p.m[0] = v
	return p
}

// Int returns a signed integer parameter.
func Int(v int32) Param { return Param{kind: KindInt, i: v} }

// UInt returns an unsigned integer parameter.
func UInt(v uint32) Param { return Param{kind: KindUInt, u: v} }

// Bool returns a boolean parameter, stored as a 32-bit 0 or 1.
func Bool(v bool) Param {
	p := Param{kind: KindBool}
	if v {
		p.u = 1
	}
	return p
}

// Sampler2D returns a parameter binding a 2-D texture resource.
func Sampler2D(h resource.Handle) Param { return Param{kind: KindSampler2D, tex: h} }

// Sampler3D returns a parameter binding a 3-D texture resource.
func Sampler3D(h resource.Handle) Param { return Param{kind: KindSampler3D, tex: h} }

// RawBytes returns a parameter copied verbatim into the uniform block.
func RawBytes(b []byte) Param {
	return Param{kind: KindRawBytes, raw: append([]byte(nil), b...)}
}

// Kind returns the tag.
func (p Param) Kind() ParamKind { return p.kind }

// AsMat4 returns the matrix of a Mat4 parameter.
func (p Param) AsMat4() f32.Mat4 { return p.m }

// AsVec4 returns the vector of a Vec4 parameter.
func (p Param) AsVec4() f32.Vec4 { return f32.Vec4{p.m[0], p.m[1], p.m[2], p.m[3]} }

// AsVec3 returns the vector of a Vec3 parameter.
func (p Param) AsVec3() f32.Vec3 { return f32.Vec3{p.m[0], p.m[1], p.m[2]} }

// AsVec2 returns the vector of a Vec2 parameter.
func (p Param) AsVec2() f32.Vec2 { return f32.Vec2{p.m[0], p.m[1]} }

// AsFloat returns the value of a Float parameter.
func (p Param) AsFloat() float32 { return p.m[0] }

// AsInt returns the value of an Int parameter.
func (p Param) AsInt() int32 { return p.i }

// AsUInt returns the value of a UInt or Bool parameter.
func (p Param) AsUInt() uint32 { return p.u }

// AsBool returns the value of a Bool parameter.
func (p Param) AsBool() bool { return p.u != 0 }

// Texture returns the resource bound by a sampler parameter.
func (p Param) Texture() resource.Handle { return p.tex }

// IsSampler reports whether p binds a texture instead of uniform data.
func (p Param) IsSampler() bool {
	return p.kind == KindSampler2D || p.kind == KindSampler3D
}

// std140 returns the base alignment and size of p in a uniform block.
// Samplers have no uniform representation.
func (p Param) std140() (align, size int, ok bool) {
	switch p.kind {
	case KindMat4:
		return 16, 64, true
	case KindVec4:
		return 16, 16, true
	case KindVec3:
		return 16, 12, true
	case KindVec2:
		return 8, 8, true
	case KindFloat, KindInt, KindUInt, KindBool:
		return 4, 4, true
	case KindRawBytes:
		return 16, len(p.raw), true
	case KindSampler2D, KindSampler3D:
		return 0, 0, false
	}
	return 0, 0, false
}

// appendStd140 writes p at its std140 offset after dst and returns the
// extended buffer. Matrices are written column-major.
func (p Param) appendStd140(dst []byte) []byte {
	align, size, ok := p.std140()
	if !ok {
		return dst
	}
	dst = pad(dst, align)
	le := binary.LittleEndian
	switch p.kind {
	case KindMat4:
		for col := range 4 {
			for row := range 4 {
				dst = le.AppendUint32(dst, math.Float32bits(p.m[row*4+col]))
			}
		}
	case KindVec4, KindVec3, KindVec2, KindFloat:
		for i := range size / 4 {
			dst = le.AppendUint32(dst, math.Float32bits(p.m[i]))
		}
	case KindInt:
		dst = le.AppendUint32(dst, uint32(p.i))
	case KindUInt, KindBool:
		dst = le.AppendUint32(dst, p.u)
	case KindRawBytes:
		dst = append(dst, p.raw...)
	}
	return dst
}

func pad(b []byte, align int) []byte {
	for len(b)%align != 0 {
		b = append(b, 0)
	}
	return b
}

// Package material holds the materials, shader sources and shader
// parameters used by frame graph passes.
//
// A Store is created explicitly and handed to the graph, which passes it on
// to every node. It compiles shaders on demand and caches the modules.
package material

import (
	"slices"

	"github.com/gogpu/gputypes"
)

// Kind distinguishes rasterization materials from compute materials.
type Kind uint8

const (
	Visual Kind = iota
	Compute
)

func (k Kind) String() string {
	if k == Compute {
		return "compute"
	}
	return "visual"
}

// Material describes a pipeline: shader entry points, the bindings of
// group 0 and the parameters that fill them.
type Material struct {
	Name   string
	Kind   Kind
	Shader string // label of a source added with Store.AddShader

	VertexEntry   string
	FragmentEntry string
	ComputeEntry  string

	// Bindings is the layout of bind group 0.
	Bindings []gputypes.BindGroupLayoutEntry
	// VertexBuffers describes the vertex input of visual materials.
	VertexBuffers []gputypes.VertexBufferLayout
	CullMode      gputypes.CullMode
	DepthTest     bool

	// Params backs the uniform buffer of group 0. Dynamic backs the
	// per-object uniform bound at group 1 with a dynamic offset; nil when
	// the material draws no objects.
	Params  *ParamGroup
	Dynamic *ParamGroup

	inUse bool
}

// HasDynamic reports whether the material binds per-object parameters.
func (m *Material) HasDynamic() bool { return m.Dynamic != nil && m.Dynamic.Len() > 0 }

// Clone returns a deep copy that is not in use.
func (m *Material) Clone() *Material {
	c := *m
	c.Bindings = slices.Clone(m.Bindings)
	c.VertexBuffers = slices.Clone(m.VertexBuffers)
	if m.Params != nil {
		c.Params = m.Params.Clone()
	}
	if m.Dynamic != nil {
		c.Dynamic = m.Dynamic.Clone()
	}
	c.inUse = false
	return &c
}

package material

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
)

// MaxGroupSize bounds the std140 size of a parameter group in bytes.
const MaxGroupSize = 512

// ParamGroup is an ordered set of named parameters backing one uniform
// block. Parameter order is insertion order and fixes the block layout.
type ParamGroup struct {
	names  []string
	params map[string]Param
}

// NewParamGroup returns an empty group.
func NewParamGroup() *ParamGroup {
	return &ParamGroup{params: make(map[string]Param)}
}

// Set adds or updates a parameter. Updating must keep the kind, and the
// group must stay within MaxGroupSize.
func (g *ParamGroup) Set(name string, p Param) error {
	old, exists := g.params[name]
	if exists && old.kind != p.kind {
		return fmt.Errorf("%q is %v, got %v: %w", name, old.kind, p.kind, ErrParamKindMismatch)
	}
	g.params[name] = p
	if !exists {
		g.names = append(g.names, name)
	}
	if size := g.Size(); size > MaxGroupSize {
		if exists {
			g.params[name] = old
		} else {
			delete(g.params, name)
			g.names = g.names[:len(g.names)-1]
		}
		return fmt.Errorf("group of %d bytes with %q: %w", size, name, framegraph.ErrCapacityExceeded)
	}
	return nil
}

// Get returns the parameter called name.
func (g *ParamGroup) Get(name string) (Param, bool) {
	p, ok := g.params[name]
	return p, ok
}

// Names returns parameter names in block order.
func (g *ParamGroup) Names() []string { return append([]string(nil), g.names...) }

// Len returns the number of parameters.
func (g *ParamGroup) Len() int { return len(g.names) }

// Size returns the std140 size of the uniform block, rounded up to 16.
func (g *ParamGroup) Size() int {
	off := 0
	for _, name := range g.names {
		align, size, ok := g.params[name].std140()
		if !ok {
			continue
		}
		off = (off+align-1)/align*align + size
	}
	return (off + 15) / 16 * 16
}

// Serialize lays the uniform parameters out with std140 rules. Samplers
// are skipped; they are bound separately (see Textures).
func (g *ParamGroup) Serialize() []byte {
	buf := make([]byte, 0, g.Size())
	for _, name := range g.names {
		buf = g.params[name].appendStd140(buf)
	}
	return pad(buf, 16)
}

// Textures returns the sampler parameters in block order.
func (g *ParamGroup) Textures() []TextureParam {
	var out []TextureParam
	for _, name := range g.names {
		if p := g.params[name]; p.IsSampler() {
			out = append(out, TextureParam{Name: name, Kind: p.kind, Handle: p.tex})
		}
	}
	return out
}

// Clone returns an independent copy.
func (g *ParamGroup) Clone() *ParamGroup {
	c := &ParamGroup{
		names:  append([]string(nil), g.names...),
		params: make(map[string]Param, len(g.params)),
	}
	for k, v := range g.params {
		if v.kind == KindRawBytes {
			v.raw = append([]byte(nil), v.raw...)
		}
		c.params[k] = v
	}
	return c
}

// TextureParam is a sampler parameter of a group.
type TextureParam struct {
	Name   string
	Kind   ParamKind
	Handle resource.Handle
}

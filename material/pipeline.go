package material

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DynamicStride is the byte stride between per-object parameter blocks in
// a dynamic uniform buffer. It matches the minimum uniform offset
// alignment of the default limits.
const DynamicStride = 256

// Targets describes the attachments a render pipeline draws into.
type Targets struct {
	Colors []gputypes.TextureFormat
	// Depth is TextureFormatUndefined when the pass has no depth attachment.
	Depth gputypes.TextureFormat
}

// Pipeline is a render or compute pipeline with its layouts.
type Pipeline struct {
	device         hal.Device
	Material       *Material
	BindLayout     hal.BindGroupLayout
	DynamicLayout  hal.BindGroupLayout
	PipelineLayout hal.PipelineLayout
	Render         hal.RenderPipeline
	Compute        hal.ComputePipeline
}

func (s *Store) layouts(m *Material) (*Pipeline, error) {
	p := &Pipeline{device: s.device, Material: m}
	bgl, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   m.Name + "_bgl",
		Entries: m.Bindings,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout %s: %w", m.Name, err)
	}
	p.BindLayout = bgl
	groups := []hal.BindGroupLayout{bgl}

	if m.HasDynamic() {
		dyn, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: m.Name + "_object_bgl",
			Entries: []gputypes.BindGroupLayoutEntry{{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:             gputypes.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uint64(m.Dynamic.Size()),
				},
			}},
		})
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("create object bind group layout %s: %w", m.Name, err)
		}
		p.DynamicLayout = dyn
		groups = append(groups, dyn)
	}

	pl, err := s.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            m.Name + "_layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create pipeline layout %s: %w", m.Name, err)
	}
	p.PipelineLayout = pl
	return p, nil
}

// RenderPipeline builds a render pipeline for a visual material.
func (s *Store) RenderPipeline(m *Material, t Targets) (*Pipeline, error) {
	if m.Kind != Visual {
		return nil, fmt.Errorf("render pipeline from %s material %q: %w", m.Kind, m.Name, ErrWrongKind)
	}
	mod, err := s.ShaderModule(m.Shader)
	if err != nil {
		return nil, err
	}
	p, err := s.layouts(m)
	if err != nil {
		return nil, err
	}

	targets := make([]gputypes.ColorTargetState, len(t.Colors))
	for i, f := range t.Colors {
		targets[i] = gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskAll}
	}
	var depth *hal.DepthStencilState
	if t.Depth != gputypes.TextureFormatUndefined {
		depth = &hal.DepthStencilState{
			Format:            t.Depth,
			DepthWriteEnabled: m.DepthTest,
			DepthCompare:      gputypes.CompareFunctionLess,
		}
		if !m.DepthTest {
			depth.DepthCompare = gputypes.CompareFunctionAlways
		}
	}

	rp, err := s.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  m.Name,
		Layout: p.PipelineLayout,
		Vertex: hal.VertexState{
			Module:     mod,
			EntryPoint: m.VertexEntry,
			Buffers:    m.VertexBuffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: m.CullMode,
		},
		DepthStencil: depth,
		Multisample:  gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Fragment: &hal.FragmentState{
			Module:     mod,
			EntryPoint: m.FragmentEntry,
			Targets:    targets,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create render pipeline %s: %w", m.Name, err)
	}
	p.Render = rp
	return p, nil
}

// ComputePipeline builds a compute pipeline for a compute material.
func (s *Store) ComputePipeline(m *Material) (*Pipeline, error) {
	if m.Kind != Compute {
		return nil, fmt.Errorf("compute pipeline from %s material %q: %w", m.Kind, m.Name, ErrWrongKind)
	}
	mod, err := s.ShaderModule(m.Shader)
	if err != nil {
		return nil, err
	}
	p, err := s.layouts(m)
	if err != nil {
		return nil, err
	}
	cp, err := s.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  m.Name,
		Layout: p.PipelineLayout,
		Compute: hal.ComputeState{
			Module:     mod,
			EntryPoint: m.ComputeEntry,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create compute pipeline %s: %w", m.Name, err)
	}
	p.Compute = cp
	return p, nil
}

// BindGroup creates a group 0 bind group for p.
func (p *Pipeline) BindGroup(label string, entries []gputypes.BindGroupEntry) (hal.BindGroup, error) {
	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  p.BindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %s: %w", label, err)
	}
	return bg, nil
}

// ObjectBindGroup creates the group 1 bind group over a dynamic uniform
// buffer holding one parameter block per object.
func (p *Pipeline) ObjectBindGroup(label string, u *UniformBuffer) (hal.BindGroup, error) {
	if p.DynamicLayout == nil {
		return nil, fmt.Errorf("object bind group %s: material %q has no dynamic parameters", label, p.Material.Name)
	}
	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: p.DynamicLayout,
		Entries: []gputypes.BindGroupEntry{{
			Binding:  0,
			Resource: gputypes.BufferBinding{Buffer: u.Buffer().NativeHandle(), Size: uint64(p.Material.Dynamic.Size())},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %s: %w", label, err)
	}
	return bg, nil
}

// Destroy releases the pipeline and its layouts.
func (p *Pipeline) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.Render != nil {
		p.device.DestroyRenderPipeline(p.Render)
		p.Render = nil
	}
	if p.Compute != nil {
		p.device.DestroyComputePipeline(p.Compute)
		p.Compute = nil
	}
	if p.PipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.PipelineLayout)
		p.PipelineLayout = nil
	}
	if p.DynamicLayout != nil {
		p.device.DestroyBindGroupLayout(p.DynamicLayout)
		p.DynamicLayout = nil
	}
	if p.BindLayout != nil {
		p.device.DestroyBindGroupLayout(p.BindLayout)
		p.BindLayout = nil
	}
}

package pass

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// MaxObjects bounds the objects a subpass can draw or ignore.
const MaxObjects = 50

// Subpass is one pipeline of a render pass with its attachment wiring.
type Subpass struct {
	name     string
	index    int
	pass     *RenderPass
	material *material.Material

	outputs  []int
	inputs   []int
	textures map[uint32]textureBinding
	samplers map[uint32]*resource.Set
	ignored  uint64

	pipelines [framegraph.FramesInFlight]*material.Pipeline
	groups    [framegraph.FramesInFlight]hal.BindGroup
	objGroups [framegraph.FramesInFlight]hal.BindGroup
	uniforms  [framegraph.FramesInFlight]*material.UniformBuffer
	objects   [framegraph.FramesInFlight]*material.UniformBuffer
}

// Name returns the subpass name.
func (sp *Subpass) Name() string { return sp.name }

// Index returns the position of the subpass in its pass.
func (sp *Subpass) Index() int { return sp.index }

// Material returns the subpass's own material instance.
func (sp *Subpass) Material() *material.Material { return sp.material }

// AddOutput renders the subpass into an attachment of the pass.
func (sp *Subpass) AddOutput(set *resource.Set) error {
	i := sp.pass.group.Index(set)
	if i < 0 {
		return fmt.Errorf("%s output %s: %w", sp.name, set.Name(), ErrNotInGroup)
	}
	sp.outputs = append(sp.outputs, i)
	return nil
}

// AddInput samples an attachment of the pass. Inputs fill the texture
// bindings of the material that BindTexture left free, in binding order.
func (sp *Subpass) AddInput(set *resource.Set) error {
	i := sp.pass.group.Index(set)
	if i < 0 {
		return fmt.Errorf("%s input %s: %w", sp.name, set.Name(), ErrNotInGroup)
	}
	sp.inputs = append(sp.inputs, i)
	return nil
}

type textureBinding struct {
	set   *resource.Set
	level uint32
	mip   bool
}

// BindTexture binds every mip level of set to a texture binding.
func (sp *Subpass) BindTexture(binding uint32, set *resource.Set) {
	sp.bind(binding, textureBinding{set: set})
}

// BindStorage binds a single mip level of set to a storage texture
// binding.
func (sp *Subpass) BindStorage(binding uint32, set *resource.Set, level uint32) {
	sp.bind(binding, textureBinding{set: set, level: level, mip: true})
}

func (sp *Subpass) bind(binding uint32, tb textureBinding) {
	if sp.textures == nil {
		sp.textures = make(map[uint32]textureBinding)
	}
	sp.textures[binding] = tb
}

// BindSampler binds the sampler of set to a sampler binding. Unbound
// sampler bindings use the sampler of the last texture bound before them.
func (sp *Subpass) BindSampler(binding uint32, set *resource.Set) {
	if sp.samplers == nil {
		sp.samplers = make(map[uint32]*resource.Set)
	}
	sp.samplers[binding] = set
}

// IgnoreObject excludes object obj from this subpass.
func (sp *Subpass) IgnoreObject(obj int) error {
	if obj < 0 || obj >= MaxObjects {
		return fmt.Errorf("%s ignore object %d: %w", sp.name, obj, framegraph.ErrCapacityExceeded)
	}
	sp.ignored |= 1 << obj
	return nil
}

// Ignored reports whether object obj is excluded from this subpass.
func (sp *Subpass) Ignored(obj int) bool {
	return obj >= 0 && obj < MaxObjects && sp.ignored&(1<<obj) != 0
}

// SetParam sets a parameter of the subpass material.
func (sp *Subpass) SetParam(name string, p material.Param) error {
	return sp.material.Params.Set(name, p)
}

// Outputs returns the output attachments.
func (sp *Subpass) Outputs() []*resource.Set { return sp.sets(sp.outputs) }

// Inputs returns the input attachments.
func (sp *Subpass) Inputs() []*resource.Set { return sp.sets(sp.inputs) }

func (sp *Subpass) sets(idx []int) []*resource.Set {
	out := make([]*resource.Set, len(idx))
	for i, a := range idx {
		out[i] = sp.pass.group.Set(a)
	}
	return out
}

func (sp *Subpass) usesDepth() bool {
	d := sp.pass.group.Depth()
	if d == nil {
		return false
	}
	if sp.material.DepthTest {
		return true
	}
	for _, o := range sp.outputs {
		if sp.pass.group.Set(o) == d {
			return true
		}
	}
	return false
}

func (sp *Subpass) colorOutputs() []int {
	var out []int
	for _, o := range sp.outputs {
		if sp.pass.group.Set(o).Kind() != resource.KindDepth {
			out = append(out, o)
		}
	}
	return out
}

func (sp *Subpass) create(frame int) error {
	p := sp.pass
	targets := material.Targets{}
	for _, o := range sp.colorOutputs() {
		targets.Colors = append(targets.Colors, p.group.Set(o).Image(frame).Format())
	}
	if sp.usesDepth() {
		targets.Depth = p.group.Depth().Image(frame).Format()
	}
	pipe, err := p.store.RenderPipeline(sp.material, targets)
	if err != nil {
		return fmt.Errorf("subpass %s: %w", sp.name, err)
	}
	sp.pipelines[frame] = pipe

	if size := sp.material.Params.Size(); size > 0 {
		u, err := material.NewUniformBuffer(p.device, fmt.Sprintf("%s_params[%d]", sp.name, frame), uint64(size))
		if err != nil {
			return err
		}
		sp.uniforms[frame] = u
	}

	entries, err := sp.bindEntries(frame)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		bg, err := pipe.BindGroup(fmt.Sprintf("%s_bind[%d]", sp.name, frame), entries)
		if err != nil {
			return err
		}
		sp.groups[frame] = bg
	}

	if sp.material.HasDynamic() {
		u, err := material.NewDynamicBuffer(p.device, fmt.Sprintf("%s_objects[%d]", sp.name, frame), MaxObjects)
		if err != nil {
			return err
		}
		sp.objects[frame] = u
		bg, err := pipe.ObjectBindGroup(fmt.Sprintf("%s_object_bind[%d]", sp.name, frame), u)
		if err != nil {
			return err
		}
		sp.objGroups[frame] = bg
	}
	return nil
}

// bindEntries resolves the material's group 0 layout against the
// subpass's uniform buffer, inputs and explicitly bound sets.
func (sp *Subpass) bindEntries(frame int) ([]gputypes.BindGroupEntry, error) {
	inputs := sp.Inputs()
	next := 0
	var last *resource.Set
	entries := make([]gputypes.BindGroupEntry, 0, len(sp.material.Bindings))
	for _, b := range sp.material.Bindings {
		var res gputypes.BindingResource
		switch {
		case b.Buffer != nil:
			u := sp.uniforms[frame]
			if u == nil {
				return nil, fmt.Errorf("%s binding %d: material %q has no parameters", sp.name, b.Binding, sp.material.Name)
			}
			res = u.Binding(u.Size())
		case b.Texture != nil, b.StorageTexture != nil:
			tb, ok := sp.textures[b.Binding]
			if !ok {
				if next == len(inputs) {
					return nil, fmt.Errorf("%s binding %d: no texture bound", sp.name, b.Binding)
				}
				tb = textureBinding{set: inputs[next]}
				next++
			}
			set := tb.set
			view := set.Image(frame).View()
			if tb.mip && view != nil {
				var err error
				if view, err = set.Image(frame).MipView(tb.level); err != nil {
					return nil, fmt.Errorf("%s binding %d: %w", sp.name, b.Binding, err)
				}
			}
			if view == nil {
				return nil, fmt.Errorf("%s binding %d: %s: %w", sp.name, b.Binding, set.Name(), ErrNotInitialized)
			}
			last = set
			res = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
		case b.Sampler != nil:
			set, ok := sp.samplers[b.Binding]
			if !ok {
				set = last
			}
			if set == nil || set.Image(frame).Sampler() == nil {
				return nil, fmt.Errorf("%s binding %d: no sampler bound", sp.name, b.Binding)
			}
			res = gputypes.SamplerBinding{Sampler: set.Image(frame).Sampler().NativeHandle()}
		default:
			continue
		}
		entries = append(entries, gputypes.BindGroupEntry{Binding: b.Binding, Resource: res})
	}
	return entries, nil
}

func (sp *Subpass) destroyFrame(frame int) {
	d := sp.pass.device
	if sp.objGroups[frame] != nil {
		d.DestroyBindGroup(sp.objGroups[frame])
		sp.objGroups[frame] = nil
	}
	if sp.groups[frame] != nil {
		d.DestroyBindGroup(sp.groups[frame])
		sp.groups[frame] = nil
	}
	if sp.objects[frame] != nil {
		sp.objects[frame].Destroy(d)
		sp.objects[frame] = nil
	}
	if sp.uniforms[frame] != nil {
		sp.uniforms[frame].Destroy(d)
		sp.uniforms[frame] = nil
	}
	sp.pipelines[frame].Destroy()
	sp.pipelines[frame] = nil
}

func (sp *Subpass) record(enc hal.CommandEncoder, frame int, objects []Object, mask ObjectMask) (int, error) {
	p := sp.pass
	w, h := p.Extent(frame)

	desc := &hal.RenderPassDescriptor{Label: sp.name}
	for _, o := range sp.colorOutputs() {
		img := p.group.Set(o).Image(frame)
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       img.View(),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: p.group.Clear(o).Color,
		})
		img.SetNativeLayout(resource.LayoutColorAttachment)
	}
	if sp.usesDepth() {
		d := p.group.Depth()
		clear := p.group.Clear(p.group.Len() - 1)
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              d.Image(frame).View(),
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   clear.Depth,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpDiscard,
			StencilClearValue: clear.Stencil,
		}
		d.Image(frame).SetNativeLayout(resource.LayoutDepthStencilAttachment)
	}

	if u := sp.uniforms[frame]; u != nil {
		if err := u.Upload(p.queue, 0, sp.material.Params); err != nil {
			return 0, fmt.Errorf("subpass %s: %w", sp.name, err)
		}
	}

	rp := enc.BeginRenderPass(desc)
	defer rp.End()
	rp.SetPipeline(sp.pipelines[frame].Render)
	if g := sp.groups[frame]; g != nil {
		rp.SetBindGroup(0, g, nil)
	}
	rp.SetViewport(0, 0, float32(w), float32(h), 0, 1)
	rp.SetScissorRect(0, 0, w, h)

	if !sp.material.HasDynamic() || len(objects) == 0 {
		rp.Draw(3, 1, 0, 0)
		return 1, nil
	}
	if len(objects) > MaxObjects {
		return 0, fmt.Errorf("subpass %s: %d objects: %w", sp.name, len(objects), framegraph.ErrCapacityExceeded)
	}
	draws := 0
	for i, obj := range objects {
		if sp.Ignored(i) || (mask != nil && mask(i)&(1<<sp.index) == 0) {
			continue
		}
		if err := sp.material.Dynamic.Set("model", material.Mat4(obj.Transform())); err != nil {
			return draws, err
		}
		if err := sp.objects[frame].UploadObject(p.queue, i, sp.material.Dynamic); err != nil {
			return draws, err
		}
		rp.SetBindGroup(1, sp.objGroups[frame], []uint32{uint32(i * material.DynamicStride)})
		for _, m := range obj.Meshes() {
			rp.SetVertexBuffer(0, m.Vertices, 0)
			rp.SetIndexBuffer(m.Indices, m.IndexFormat, 0)
			rp.DrawIndexed(m.IndexCount, 1, 0, 0, 0)
			draws++
		}
	}
	return draws, nil
}

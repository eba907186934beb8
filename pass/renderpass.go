// Package pass builds render passes out of attachment groups and
// subpasses, and records their draws.
//
// A RenderPass owns an AttachmentGroup and a fixed number of subpasses.
// Create validates the group for one frame in flight, builds the frame's
// pipelines and bind groups and synthesizes the linear chain of subpass
// dependencies. Record then renders every subpass in order.
package pass

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RenderPass is an ordered chain of subpasses over one attachment group.
type RenderPass struct {
	name   string
	device hal.Device
	queue  hal.Queue
	store  *material.Store

	group        *AttachmentGroup
	subpasses    []*Subpass
	maxSubpasses int
	deps         []Dependency
	created      [framegraph.FramesInFlight]bool
}

// New returns a render pass that will hold the given numbers of
// attachments and subpasses.
func New(name string, device hal.Device, queue hal.Queue, store *material.Store, attachments, subpasses int) *RenderPass {
	return &RenderPass{
		name:         name,
		device:       device,
		queue:        queue,
		store:        store,
		group:        NewAttachmentGroup(attachments),
		subpasses:    make([]*Subpass, 0, subpasses),
		maxSubpasses: subpasses,
	}
}

// Name returns the pass name.
func (p *RenderPass) Name() string { return p.name }

// Group returns the attachment group.
func (p *RenderPass) Group() *AttachmentGroup { return p.group }

// Subpasses returns the subpasses in order.
func (p *RenderPass) Subpasses() []*Subpass { return p.subpasses }

// Dependencies returns the dependencies synthesized by the last Create.
func (p *RenderPass) Dependencies() []Dependency { return p.deps }

// Created reports whether frame was built by Create.
func (p *RenderPass) Created(frame int) bool { return p.created[frame%framegraph.FramesInFlight] }

// AddAttachment appends a render target. Depth must come last.
func (p *RenderPass) AddAttachment(set *resource.Set, clear ClearValue) error {
	return p.group.Add(set, clear)
}

// AddSubpass appends a subpass drawing with the named material.
func (p *RenderPass) AddSubpass(materialName, name string) (*Subpass, error) {
	if len(p.subpasses) == p.maxSubpasses {
		return nil, fmt.Errorf("%s subpass %s: %d declared: %w", p.name, name, p.maxSubpasses, framegraph.ErrCapacityExceeded)
	}
	m, err := p.store.Get(materialName)
	if err != nil {
		return nil, fmt.Errorf("%s subpass %s: %w", p.name, name, err)
	}
	sp := &Subpass{name: name, index: len(p.subpasses), pass: p, material: m}
	p.subpasses = append(p.subpasses, sp)
	return sp, nil
}

// Create validates the attachments of frame and builds its pipelines and
// bind groups. It can be called again after the attachments were resized.
func (p *RenderPass) Create(frame int) error {
	frame %= framegraph.FramesInFlight
	if err := p.group.Validate(frame); err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	for _, sp := range p.subpasses {
		if len(sp.inputs) == 0 && len(sp.outputs) == 0 {
			return fmt.Errorf("%s/%s: %w", p.name, sp.name, ErrEmptySubpass)
		}
	}
	p.destroyFrame(frame)
	for _, sp := range p.subpasses {
		if err := sp.create(frame); err != nil {
			p.destroyFrame(frame)
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	p.deps = dependencies(len(p.subpasses))
	p.created[frame] = true
	framegraph.Logger().Debug("pass: created", "pass", p.name, "frame", frame,
		"attachments", p.group.Len(), "subpasses", len(p.subpasses))
	return nil
}

// Framebuffer returns the attachment views of frame in group order, color
// and input attachments first and depth last.
func (p *RenderPass) Framebuffer(frame int) []hal.TextureView {
	views := make([]hal.TextureView, p.group.Len())
	for i := range views {
		views[i] = p.group.Set(i).Image(frame).View()
	}
	return views
}

// Extent returns the attachment size of frame.
func (p *RenderPass) Extent(frame int) (uint32, uint32) {
	if p.group.Len() == 0 {
		return 0, 0
	}
	img := p.group.Set(0).Image(frame)
	return img.Width(), img.Height()
}

// Record renders every subpass of frame into enc and returns the number
// of draw calls. Between subpasses, inputs written by an earlier subpass
// are transitioned for sampling as the synthesized dependency requires.
// mask may be nil to draw every object in every subpass.
func (p *RenderPass) Record(enc hal.CommandEncoder, frame int, objects []Object, mask ObjectMask) (int, error) {
	frame %= framegraph.FramesInFlight
	if !p.created[frame] {
		return 0, fmt.Errorf("%s frame %d: %w", p.name, frame, ErrNotCreated)
	}
	written := make(map[int]bool)
	draws := 0
	for _, sp := range p.subpasses {
		var barriers []hal.TextureBarrier
		for _, in := range sp.inputs {
			if !written[in] {
				continue
			}
			img := p.group.Set(in).Image(frame)
			to := img.LayoutFor(resource.UsageInputAttachment)
			barriers = append(barriers, hal.TextureBarrier{
				Texture: img.Texture(),
				Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1},
				Usage: hal.TextureUsageTransition{
					OldUsage: img.NativeLayout().TextureUsage(),
					NewUsage: to.TextureUsage(),
				},
			})
			img.SetNativeLayout(to)
		}
		if len(barriers) > 0 {
			enc.TransitionTextures(barriers)
		}
		n, err := sp.record(enc, frame, objects, mask)
		draws += n
		if err != nil {
			return draws, err
		}
		for _, o := range sp.outputs {
			written[o] = true
		}
	}
	return draws, nil
}

// Invalidate drops every frame's pipelines and bind groups, for example
// after the attachments were resized. Create must run again.
func (p *RenderPass) Invalidate() {
	for f := range framegraph.FramesInFlight {
		p.destroyFrame(f)
	}
}

func (p *RenderPass) destroyFrame(frame int) {
	for _, sp := range p.subpasses {
		sp.destroyFrame(frame)
	}
	p.created[frame] = false
}

// Destroy releases every frame's GPU objects.
func (p *RenderPass) Destroy() { p.Invalidate() }

package deferred

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/graph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/pass"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/framegraph/timeline"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// G-buffer target formats.
const (
	GAlbedoFormat   = gputypes.TextureFormatRGBA8Unorm
	GNormalFormat   = gputypes.TextureFormatRGBA16Float
	GPositionFormat = gputypes.TextureFormatRGBA32Float
)

// GBuffer renders albedo, normal and world position of the scene from the
// camera into swapchain-sized targets. Each frame in flight records into
// its own encoder and signals its own semaphore.
type GBuffer struct {
	graph.NodeContext

	cfg     framegraph.Config
	queue   *timeline.Queue
	signals [framegraph.FramesInFlight]*timeline.Semaphore
	scene   *Scene

	targets [4]*resource.Set
	rp      *pass.RenderPass
	sp      *pass.Subpass
	encs    [framegraph.FramesInFlight]*submitEncoder

	draws int
}

// NewGBuffer returns the g-buffer node. Frame slot i signals signals[i].
func NewGBuffer(cfg framegraph.Config, queue *timeline.Queue, scene *Scene, signals [framegraph.FramesInFlight]*timeline.Semaphore) *GBuffer {
	return &GBuffer{
		NodeContext: graph.NewNodeContext("gbuffer", resource.StageVertex, resource.StageColorOutput),
		cfg:         cfg,
		queue:       queue,
		signals:     signals,
		scene:       scene,
	}
}

func (g *GBuffer) Init() error {
	type target struct {
		name   string
		kind   resource.Kind
		usage  resource.Usage
		format gputypes.TextureFormat
	}
	targets := [4]target{
		{GAlbedo, resource.KindRenderTexture, resource.UsageColorAttachment, GAlbedoFormat},
		{GNormal, resource.KindRenderTexture, resource.UsageColorAttachment, GNormalFormat},
		{GPosition, resource.KindRenderTexture, resource.UsageColorAttachment, GPositionFormat},
		{GDepth, resource.KindDepth, resource.UsageDepthAttachment, gputypes.TextureFormatDepth32Float},
	}
	g.rp = pass.New("gbuffer", g.Device, g.Queue, g.Materials, len(targets), 1)
	for i, t := range targets {
		set, _, err := g.Write(t.name, t.kind, t.usage)
		if err != nil {
			return err
		}
		set.SetExtent(g.cfg.Width, g.cfg.Height, 1)
		set.SetFormat(t.format)
		clear := pass.ClearValue{}
		if t.kind == resource.KindDepth {
			clear = pass.DefaultDepthClear
		}
		if err := g.rp.AddAttachment(set, clear); err != nil {
			return err
		}
		g.targets[i] = set
	}

	var err error
	if g.sp, err = g.rp.AddSubpass(material.MRT, "mrt"); err != nil {
		return err
	}
	for _, set := range g.targets[:3] {
		if err := g.sp.AddOutput(set); err != nil {
			return err
		}
	}
	for i := range g.encs {
		if g.encs[i], err = newSubmitEncoder(g.Device, fmt.Sprintf("gbuffer[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// Targets returns the albedo, normal, position and depth sets.
func (g *GBuffer) Targets() [4]*resource.Set { return g.targets }

func (g *GBuffer) Encoder(f *graph.Frame) (hal.CommandEncoder, error) {
	return g.encs[f.Index%framegraph.FramesInFlight].begin(f)
}

// Update copies the camera into the subpass parameters.
func (g *GBuffer) Update(*graph.Frame) error {
	return g.sp.SetParam("view_proj", material.Mat4(g.scene.ViewProj))
}

func (g *GBuffer) Record(f *graph.Frame) error {
	slot := f.Index % framegraph.FramesInFlight
	if !g.rp.Created(slot) {
		if err := g.rp.Create(slot); err != nil {
			return err
		}
	}
	se := g.encs[slot]
	n, err := g.rp.Record(se.enc, slot, g.scene.Objects, g.ObjectSubpasses)
	g.draws += n
	if err != nil {
		return err
	}
	return se.submit(f, g.queue, nil, g.signals[slot])
}

// Resize drops the pipelines and bind groups built over the old targets.
func (g *GBuffer) Resize(_, _ uint32) error {
	g.rp.Invalidate()
	return nil
}

// Draws returns the number of draw calls recorded so far.
func (g *GBuffer) Draws() int { return g.draws }

func (g *GBuffer) Destroy() {
	g.rp.Destroy()
	for i, e := range g.encs {
		e.destroy()
		g.encs[i] = nil
	}
}

package graph

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Barrier is a layout transition inserted by the graph.
type Barrier struct {
	Resource string
	Node     NodeID
	Frame    int
	From     resource.Layout
	To       resource.Layout
	SrcStage resource.Stage
	DstStage resource.Stage
	BaseMip  uint32
	MipCount uint32
}

func (b Barrier) String() string {
	return fmt.Sprintf("%s: %v -> %v (%v -> %v, node %d, frame %d)",
		b.Resource, b.From, b.To, b.SrcStage, b.DstStage, b.Node, b.Frame)
}

// layoutChange records the layout an image had before a barrier.
type layoutChange struct {
	node         NodeID
	img          *resource.Image
	from         resource.Layout
	frameEncoder bool
}

// Barriers returns the barriers inserted the last time the given
// frame-in-flight slot was recorded.
func (g *Graph) Barriers(slot int) []Barrier {
	return append([]Barrier(nil), g.barriers[slot%framegraph.FramesInFlight]...)
}

// barrierPass replays n's accesses against the resource ledgers. Every
// access consumes one ledger entry. Reads whose image is not in the
// expected layout get a barrier; writes never do, their producer leaves
// the image in the layout it registered.
func (g *Graph) barrierPass(n Node, f *Frame, enc hal.CommandEncoder) error {
	c := n.Context()
	var texBarriers []hal.TextureBarrier
	for _, a := range g.reg.Accesses(c.ID) {
		set, err := g.reg.Lookup(a.Handle)
		if err != nil {
			return fmt.Errorf("barrier %s/%s: %w", c.Name, a.Name, err)
		}
		t, err := set.PopTransition()
		if err != nil {
			return fmt.Errorf("barrier %s/%s: %w", c.Name, a.Name, err)
		}
		if t.Current != a.Layout || t.Usage != a.Usage {
			return fmt.Errorf("barrier %s/%s: ledger has %v, node expects %v: %w",
				c.Name, a.Name, t, a.Layout, ErrLedgerOrder)
		}
		if a.Write {
			continue
		}

		img := set.Image(f.Index)
		from := img.NativeLayout()
		if from == a.Layout {
			continue
		}
		src := resource.StageTop
		if pid, ok := g.reg.Producer(a.Name); ok {
			if p, ok := g.Node(pid); ok {
				src = p.Context().OutputStage
			}
		}
		b := Barrier{
			Resource: a.Name,
			Node:     c.ID,
			Frame:    f.Index,
			From:     from,
			To:       a.Layout,
			SrcStage: src,
			DstStage: c.InputStage,
			MipCount: img.MipLevels(),
		}
		slot := f.Index % framegraph.FramesInFlight
		g.barriers[slot] = append(g.barriers[slot], b)
		framegraph.Logger().Debug("graph: barrier", "barrier", b.String())

		if tex := img.Texture(); tex != nil {
			aspect := gputypes.TextureAspectAll
			if resource.IsDepthFormat(img.Format()) {
				aspect = gputypes.TextureAspectDepthOnly
			}
			texBarriers = append(texBarriers, hal.TextureBarrier{
				Texture: tex,
				Range: hal.TextureRange{
					Aspect:          aspect,
					BaseMipLevel:    b.BaseMip,
					MipLevelCount:   b.MipCount,
					ArrayLayerCount: 1,
				},
				Usage: hal.TextureUsageTransition{
					OldUsage: from.TextureUsage(),
					NewUsage: a.Layout.TextureUsage(),
				},
			})
		}
		g.undo = append(g.undo, layoutChange{node: c.ID, img: img, from: from, frameEncoder: enc == f.Encoder})
		img.SetNativeLayout(a.Layout)
	}
	if len(texBarriers) > 0 && enc != nil {
		enc.TransitionTextures(texBarriers)
	}
	return nil
}

// skipPass consumes n's ledger entries without touching any image.
func (g *Graph) skipPass(n Node) error {
	c := n.Context()
	for _, a := range g.reg.Accesses(c.ID) {
		set, err := g.reg.Lookup(a.Handle)
		if err != nil {
			return fmt.Errorf("skip %s/%s: %w", c.Name, a.Name, err)
		}
		if _, err := set.PopTransition(); err != nil {
			return fmt.Errorf("skip %s/%s: %w", c.Name, a.Name, err)
		}
	}
	return nil
}

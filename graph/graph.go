// Package graph orchestrates frame graph nodes: one-time initialization,
// per-frame recording in authored depth-first order, and the barrier pass
// that brings every resource a node reads into the layout it expects.
package graph

import (
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/registry"
	"github.com/gogpu/wgpu/hal"
)

// Graph owns the node tree, the resource registry and the per-frame
// barrier log.
type Graph struct {
	device    hal.Device
	queue     hal.Queue
	reg       *registry.Registry
	materials *material.Store

	roots []Node
	nodes []Node // attached, indexed by ID-1
	order []Node // init order: children before parents
	level map[NodeID]int

	barriers    [framegraph.FramesInFlight][]Barrier
	undo        []layoutChange
	failed      NodeID
	initialized bool
}

// New returns an empty graph. materials may be nil for graphs whose nodes
// create no pipelines.
func New(device hal.Device, queue hal.Queue, materials *material.Store) *Graph {
	return &Graph{
		device:    device,
		queue:     queue,
		reg:       registry.New(),
		materials: materials,
		level:     make(map[NodeID]int),
	}
}

// Registry returns the graph's resource registry.
func (g *Graph) Registry() *registry.Registry { return g.reg }

// Materials returns the material store handed to nodes.
func (g *Graph) Materials() *material.Store { return g.materials }

// AddRoot appends a top-level node. Roots are recorded in order.
func (g *Graph) AddRoot(n Node) error {
	if len(g.roots) == MaxChildren {
		return fmt.Errorf("graph roots: %w", framegraph.ErrCapacityExceeded)
	}
	g.roots = append(g.roots, n)
	return nil
}

// Attach gives n an ID and the graph's shared state. Init attaches every
// reachable node; call Attach directly when a node must register resources
// before Init.
func (g *Graph) Attach(n Node) NodeID {
	c := n.Context()
	if c.ID != 0 {
		return c.ID
	}
	g.nodes = append(g.nodes, n)
	c.ID = NodeID(len(g.nodes))
	c.Device = g.device
	c.Queue = g.queue
	c.Registry = g.reg
	c.Materials = g.materials
	return c.ID
}

// Node returns the attached node with the given ID.
func (g *Graph) Node(id NodeID) (Node, bool) {
	if id == 0 || int(id) > len(g.nodes) {
		return nil, false
	}
	return g.nodes[id-1], true
}

// Init attaches and initializes every node reachable from the roots,
// children first, then creates GPU objects for every registered resource.
func (g *Graph) Init() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[Node]int)
	var visit func(n Node, depth int, path []string) error
	visit = func(n Node, depth int, path []string) error {
		c := n.Context()
		path = append(path, c.Name)
		switch color[n] {
		case grey:
			return fmt.Errorf("%s: %w", strings.Join(path, " -> "), ErrCyclicGraph)
		case black:
			id := g.Attach(n)
			g.level[id] = max(g.level[id], depth)
			return nil
		}
		color[n] = grey
		id := g.Attach(n)
		g.level[id] = max(g.level[id], depth)
		for _, child := range c.Children() {
			if err := visit(child, depth+1, path); err != nil {
				return err
			}
		}
		color[n] = black
		g.order = append(g.order, n)
		return nil
	}
	for _, r := range g.roots {
		if err := visit(r, 0, nil); err != nil {
			return err
		}
	}

	for _, n := range g.order {
		c := n.Context()
		if c.initialized {
			continue
		}
		if err := n.Init(); err != nil {
			return fmt.Errorf("init %s: %w", c.Name, err)
		}
		c.initialized = true
	}
	if err := g.reg.InitAll(g.device, g.queue); err != nil {
		return err
	}
	g.initialized = true
	framegraph.Logger().Info("graph: initialized", "nodes", len(g.order), "resources", len(g.reg.Names()))
	return nil
}

// Update calls Update on every node in record order.
func (g *Graph) Update(f *Frame) error {
	if !g.initialized {
		return ErrNotInitialized
	}
	for _, n := range g.order {
		if err := n.Update(f); err != nil {
			return fmt.Errorf("update %s: %w", n.Context().Name, err)
		}
	}
	return nil
}

// Record records one frame: it clears per-frame node state, walks the
// roots depth first, inserts barriers before each node's commands and
// finally recycles every resource ledger for the next frame.
func (g *Graph) Record(f *Frame) error {
	if !g.initialized {
		return ErrNotInitialized
	}
	slot := f.Index % framegraph.FramesInFlight
	g.barriers[slot] = g.barriers[slot][:0]
	g.undo = g.undo[:0]
	g.failed = 0
	for _, n := range g.order {
		n.Context().recorded = false
	}
	for _, r := range g.roots {
		if err := g.record(r, f); err != nil {
			g.abandon(f)
			return err
		}
	}
	if err := g.reg.ResetPerFrame(f.Index); err != nil {
		return fmt.Errorf("reset frame %d: %w", f.Index, err)
	}
	return nil
}

func (g *Graph) record(n Node, f *Frame) error {
	c := n.Context()
	if c.recorded {
		return nil
	}
	c.recorded = true
	for _, child := range c.children {
		if err := g.record(child, f); err != nil {
			return err
		}
	}

	if err := g.recordNode(n, f); err != nil {
		g.failed = c.ID
		return err
	}
	return nil
}

func (g *Graph) recordNode(n Node, f *Frame) error {
	c := n.Context()
	if s, ok := n.(Skipper); ok && s.Skip(f) {
		return g.skipPass(n)
	}
	enc := f.Encoder
	if e, ok := n.(Encoding); ok {
		var err error
		if enc, err = e.Encoder(f); err != nil {
			return fmt.Errorf("encoder %s: %w", c.Name, err)
		}
	}
	if err := g.barrierPass(n, f, enc); err != nil {
		return err
	}
	if err := n.Record(f); err != nil {
		return fmt.Errorf("record %s: %w", c.Name, err)
	}
	return nil
}

// abandon leaves the graph ready for the next frame after recording
// failed. Barriers written into the frame encoder, or into the encoder of
// the failing node, never reach the GPU, so the image layouts they set are
// undone. Every ledger is rewound.
func (g *Graph) abandon(f *Frame) {
	for i := len(g.undo) - 1; i >= 0; i-- {
		u := g.undo[i]
		if u.frameEncoder || u.node == g.failed {
			u.img.SetNativeLayout(u.from)
		}
	}
	g.undo = g.undo[:0]
	g.reg.AbandonFrame(f.Index)
	framegraph.Logger().Warn("graph: frame abandoned", "frame", f.Count, "slot", f.Index, "node", g.failed)
}

// Recreate rebuilds swapchain-sized state after the swapchain changed.
func (g *Graph) Recreate(width, height uint32) error {
	if err := g.reg.ResizeTargets(g.device, width, height); err != nil {
		return err
	}
	for _, n := range g.order {
		if r, ok := n.(Resizer); ok {
			if err := r.Resize(width, height); err != nil {
				return fmt.Errorf("resize %s: %w", n.Context().Name, err)
			}
		}
	}
	framegraph.Logger().Warn("graph: recreated", "width", width, "height", height)
	return nil
}

// Destroy destroys nodes, parents first, then every resource.
func (g *Graph) Destroy() {
	for i := len(g.order) - 1; i >= 0; i-- {
		n := g.order[i]
		if n.Context().initialized {
			n.Destroy()
			n.Context().initialized = false
		}
	}
	g.reg.Destroy(g.device)
	g.initialized = false
}

// Dump writes the node tree, one node per line, indented by depth.
func (g *Graph) Dump(w io.Writer) error {
	seen := make(map[Node]bool)
	var dump func(n Node, depth int) error
	dump = func(n Node, depth int) error {
		c := n.Context()
		mark := ""
		if seen[n] {
			mark = " (shared)"
		}
		if _, err := fmt.Fprintf(w, "%s%s #%d level=%d%s\n", strings.Repeat("  ", depth), c.Name, c.ID, g.level[c.ID], mark); err != nil {
			return err
		}
		if seen[n] {
			return nil
		}
		seen[n] = true
		for _, a := range g.reg.Accesses(c.ID) {
			op := "read"
			if a.Write {
				op = "write"
			}
			if _, err := fmt.Fprintf(w, "%s  %s %s as %v\n", strings.Repeat("  ", depth), op, a.Name, a.Layout); err != nil {
				return err
			}
		}
		for _, child := range c.children {
			if err := dump(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range g.roots {
		if err := dump(r, 0); err != nil {
			return err
		}
	}
	return nil
}

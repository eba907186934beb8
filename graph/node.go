package graph

import (
	"context"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/material"
	"github.com/gogpu/framegraph/registry"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/wgpu/hal"
)

// NodeID identifies a node. Zero means the node is not attached to a graph.
type NodeID = registry.NodeID

// MaxChildren bounds the child list of a node.
const MaxChildren = 16

// AllSubpasses activates an object in every subpass.
const AllSubpasses = ^uint32(0)

// Node is a unit of GPU work in the graph.
//
// Init runs once, after the node's children were initialized, and is where
// a node registers the resources it writes and reads. Update runs once per
// displayed frame before recording. Record records the node's commands;
// the graph has already inserted the barriers its reads need. Destroy
// releases everything Init created.
//
// Implementations embed NodeContext, which provides Context.
type Node interface {
	Context() *NodeContext
	Init() error
	Update(f *Frame) error
	Record(f *Frame) error
	Destroy()
}

// Encoding is implemented by nodes that record into their own command
// encoder, typically because they submit on another queue. The graph
// writes the node's barriers into the returned encoder.
type Encoding interface {
	Encoder(f *Frame) (hal.CommandEncoder, error)
}

// Skipper is implemented by nodes that do not run every frame. When Skip
// returns true the node's accesses are consumed without barriers and
// neither Encoder nor Record is called; its children are still recorded.
type Skipper interface {
	Skip(f *Frame) bool
}

// Resizer is implemented by nodes holding swapchain-sized state.
type Resizer interface {
	Resize(width, height uint32) error
}

// Frame is the per-frame recording state handed to nodes.
type Frame struct {
	// Index is the frame-in-flight slot in [0, FramesInFlight).
	Index int
	// Count is the number of frames displayed before this one.
	Count uint64
	// Encoder is the frame's graphics command encoder.
	Encoder hal.CommandEncoder
	// Ctx bounds blocking waits of nodes that submit their own work.
	Ctx context.Context
}

// Context returns f.Ctx, or a background context when it is nil.
func (f *Frame) Context() context.Context {
	if f.Ctx == nil {
		return context.Background()
	}
	return f.Ctx
}

// NodeContext is the state shared by every node. It is filled in by the
// graph when the node is attached.
type NodeContext struct {
	Name string
	ID   NodeID

	Device    hal.Device
	Queue     hal.Queue
	Registry  *registry.Registry
	Materials *material.Store

	// InputStage is where the node first reads its inputs; OutputStage is
	// where it last writes its outputs. They scope inserted barriers.
	InputStage  resource.Stage
	OutputStage resource.Stage

	children []Node
	subpass  map[int]uint32

	recorded    bool
	initialized bool
}

// NewNodeContext returns a context for a node called name.
func NewNodeContext(name string, in, out resource.Stage) NodeContext {
	return NodeContext{
		Name:        name,
		InputStage:  in,
		OutputStage: out,
		children:    make([]Node, 0, MaxChildren),
	}
}

// Context returns c. Embedding NodeContext satisfies the Node method.
func (c *NodeContext) Context() *NodeContext { return c }

// AddChild appends a node that must be recorded before this one.
func (c *NodeContext) AddChild(n Node) error {
	if len(c.children) == MaxChildren {
		return fmt.Errorf("%s: %d children: %w", c.Name, MaxChildren, framegraph.ErrCapacityExceeded)
	}
	c.children = append(c.children, n)
	return nil
}

// Children returns the child list in authored order.
func (c *NodeContext) Children() []Node { return c.children }

// SetObjectSubpasses sets the subpasses, as a bitmask, object obj is drawn in.
func (c *NodeContext) SetObjectSubpasses(obj int, mask uint32) {
	if c.subpass == nil {
		c.subpass = make(map[int]uint32)
	}
	c.subpass[obj] = mask
}

// ObjectSubpasses returns the subpass mask of obj, AllSubpasses by default.
func (c *NodeContext) ObjectSubpasses(obj int) uint32 {
	if m, ok := c.subpass[obj]; ok {
		return m
	}
	return AllSubpasses
}

// Recorded reports whether the node was recorded in the current frame.
func (c *NodeContext) Recorded() bool { return c.recorded }

// Initialized reports whether Init completed.
func (c *NodeContext) Initialized() bool { return c.initialized }

// Write registers this node as the producer of name.
func (c *NodeContext) Write(name string, kind resource.Kind, usage resource.Usage) (*resource.Set, resource.Handle, error) {
	if c.Registry == nil {
		return nil, resource.Handle{}, fmt.Errorf("%s: %w", c.Name, ErrNotAttached)
	}
	h, err := c.Registry.RegisterWrite(name, c.ID, kind, usage)
	if err != nil {
		return nil, resource.Handle{}, err
	}
	set, err := c.Registry.Lookup(h)
	return set, h, err
}

// Read registers this node as a consumer of name.
func (c *NodeContext) Read(name string, usage resource.Usage) (*resource.Set, resource.Handle, error) {
	if c.Registry == nil {
		return nil, resource.Handle{}, fmt.Errorf("%s: %w", c.Name, ErrNotAttached)
	}
	h, err := c.Registry.RegisterRead(name, c.ID, usage)
	if err != nil {
		return nil, resource.Handle{}, err
	}
	set, err := c.Registry.Lookup(h)
	return set, h, err
}

// Package registry is the frame graph's catalog of named resources.
//
// Every resource has exactly one producer, registered with RegisterWrite
// (or RegisterLoaded for textures read from images), and any number of
// consumers registered with RegisterRead. For each node the registry keeps
// the ordered list of accesses it declared; the graph replays that list
// every frame to place barriers.
package registry

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"
)

var (
	// ErrDuplicateWrite is returned when a name is registered for write twice.
	ErrDuplicateWrite = errors.New("registry: resource already has a producer")

	// ErrUnknownResource is returned when reading a name nobody writes.
	ErrUnknownResource = errors.New("registry: unknown resource")
)

// NodeID identifies a node in the graph.
type NodeID uint32

// Access is one resource access declared by a node.
type Access struct {
	Handle resource.Handle
	Name   string
	Usage  resource.Usage
	// Layout is the layout the node expects the resource in.
	Layout resource.Layout
	Write  bool
}

type entry struct {
	producer NodeID
	handle   resource.Handle
}

// Registry maps resource names to sets and nodes to their accesses.
// It is not safe for concurrent use.
type Registry struct {
	arena    resource.Arena
	writes   map[string]entry
	names    []string
	accesses map[NodeID][]Access
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		writes:   make(map[string]entry),
		accesses: make(map[NodeID][]Access),
	}
}

// RegisterWrite declares producer as the single writer of name and
// allocates the resource. The caller resolves the handle with Lookup and
// dimensions the set before InitAll.
func (r *Registry) RegisterWrite(name string, producer NodeID, kind resource.Kind, usage resource.Usage) (resource.Handle, error) {
	if e, ok := r.writes[name]; ok {
		return resource.Handle{}, fmt.Errorf("%q (node %d, first by node %d): %w", name, producer, e.producer, ErrDuplicateWrite)
	}
	set := resource.NewSet(name, kind)
	t, err := set.LogTransition(usage)
	if err != nil {
		return resource.Handle{}, fmt.Errorf("register write %q: %w", name, err)
	}
	h := r.arena.Insert(set)
	r.writes[name] = entry{producer: producer, handle: h}
	r.names = append(r.names, name)
	r.accesses[producer] = append(r.accesses[producer], Access{
		Handle: h,
		Name:   name,
		Usage:  usage,
		Layout: t.Current,
		Write:  true,
	})
	framegraph.Logger().Debug("registry: write", "name", name, "node", producer, "kind", kind, "layout", t.Current)
	return h, nil
}

// RegisterRead declares consumer as a reader of name. The expected layout
// is derived from usage. Nothing is allocated.
func (r *Registry) RegisterRead(name string, consumer NodeID, usage resource.Usage) (resource.Handle, error) {
	e, ok := r.writes[name]
	if !ok {
		return resource.Handle{}, fmt.Errorf("%q read by node %d: %w", name, consumer, ErrUnknownResource)
	}
	set, err := r.arena.Get(e.handle)
	if err != nil {
		return resource.Handle{}, fmt.Errorf("register read %q: %w", name, err)
	}
	t, err := set.LogTransition(usage)
	if err != nil {
		return resource.Handle{}, fmt.Errorf("register read %q: %w", name, err)
	}
	r.accesses[consumer] = append(r.accesses[consumer], Access{
		Handle: e.handle,
		Name:   name,
		Usage:  usage,
		Layout: t.Current,
	})
	framegraph.Logger().Debug("registry: read", "name", name, "node", consumer, "layout", t.Current)
	return e.handle, nil
}

// RegisterLoaded registers a persistent 2-D texture holding img. The
// pixels are converted to RGBA and uploaded by InitAll.
func (r *Registry) RegisterLoaded(name string, producer NodeID, img image.Image) (resource.Handle, error) {
	b := img.Bounds()
	if b.Empty() {
		return resource.Handle{}, fmt.Errorf("register loaded %q: empty image", name)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	h, err := r.RegisterWrite(name, producer, resource.KindTexture2D, resource.UsageTransferDst)
	if err != nil {
		return resource.Handle{}, err
	}
	set, err := r.arena.Get(h)
	if err != nil {
		return resource.Handle{}, fmt.Errorf("register loaded %q: %w", name, err)
	}
	set.SetExtent(uint32(b.Dx()), uint32(b.Dy()), 1)
	set.Image(0).SetPixels(rgba.Pix)
	return h, nil
}

// Lookup resolves a handle.
func (r *Registry) Lookup(h resource.Handle) (*resource.Set, error) {
	return r.arena.Get(h)
}

// LookupName resolves a registered name.
func (r *Registry) LookupName(name string) (*resource.Set, resource.Handle, error) {
	e, ok := r.writes[name]
	if !ok {
		return nil, resource.Handle{}, fmt.Errorf("%q: %w", name, ErrUnknownResource)
	}
	set, err := r.arena.Get(e.handle)
	return set, e.handle, err
}

// Producer returns the node that writes name.
func (r *Registry) Producer(name string) (NodeID, bool) {
	e, ok := r.writes[name]
	return e.producer, ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Accesses returns every access node declared, in registration order.
func (r *Registry) Accesses(node NodeID) []Access {
	return r.accesses[node]
}

// Dependees returns the reads node declared, in registration order.
func (r *Registry) Dependees(node NodeID) []Access {
	var reads []Access
	for _, a := range r.accesses[node] {
		if !a.Write {
			reads = append(reads, a)
		}
	}
	return reads
}

// InitAll creates GPU objects for every registered resource, uploads
// loaded pixels and moves every other shared image out of UNDEFINED into
// its original layout.
func (r *Registry) InitAll(device hal.Device, queue hal.Queue) error {
	var (
		err      error
		prepared []*resource.Image
	)
	r.arena.Each(func(_ resource.Handle, set *resource.Set) {
		if err != nil {
			return
		}
		if e := set.Init(device); e != nil {
			err = fmt.Errorf("init %q: %w", set.Name(), e)
			return
		}
		for _, img := range set.Images() {
			if e := img.Upload(queue); e != nil {
				err = e
				return
			}
			if img.NativeLayout() == resource.LayoutUndefined && img.Texture() != nil {
				prepared = append(prepared, img)
			}
		}
	})
	if err != nil || len(prepared) == 0 {
		return err
	}
	return initialLayouts(device, queue, prepared)
}

// initialLayouts records and submits the first transition of every image
// and waits for it, so that the graph's layout tracking starts from the
// original layouts.
func initialLayouts(device hal.Device, queue hal.Queue, images []*resource.Image) error {
	enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "initial_layouts"})
	if err != nil {
		return fmt.Errorf("initial layouts: %w", err)
	}
	defer enc.Destroy()
	if err := enc.BeginEncoding("initial_layouts"); err != nil {
		return fmt.Errorf("initial layouts: %w", err)
	}
	for _, img := range images {
		img.Prepare(enc)
	}
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("initial layouts: %w", err)
	}
	defer device.FreeCommandBuffer(cmd)
	if _, err := queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("initial layouts: %w", err)
	}
	if err := device.WaitIdle(); err != nil {
		return fmt.Errorf("initial layouts: %w", err)
	}
	framegraph.Logger().Debug("registry: initial layouts", "images", len(images))
	return nil
}

// ResetPerFrame recycles every ledger and returns the transient targets
// of frame to their original layout. It runs once per displayed frame,
// after recording.
func (r *Registry) ResetPerFrame(frame int) error {
	var errs []error
	r.arena.Each(func(_ resource.Handle, set *resource.Set) {
		if err := set.ResetImageLayout(); err != nil {
			errs = append(errs, err)
		}
		set.ResetFrame(frame)
	})
	return errors.Join(errs...)
}

// AbandonFrame rewinds every ledger after a frame whose recording failed
// and returns transient images of that frame to their original layout.
func (r *Registry) AbandonFrame(frame int) {
	r.arena.Each(func(_ resource.Handle, set *resource.Set) {
		set.Rewind()
		set.ResetFrame(frame)
	})
}

// ResizeTargets re-creates every per-frame target at the new extent.
// Swapchain sets are only re-dimensioned; their images are bound again by
// the swapchain.
func (r *Registry) ResizeTargets(device hal.Device, width, height uint32) error {
	var err error
	r.arena.Each(func(_ resource.Handle, set *resource.Set) {
		if err != nil || set.Kind().Shared() {
			return
		}
		set.Destroy(device)
		set.SetExtent(width, height, 1)
		if e := set.Init(device); e != nil {
			err = fmt.Errorf("resize %q: %w", set.Name(), e)
		}
	})
	return err
}

// Destroy releases every resource.
func (r *Registry) Destroy(device hal.Device) {
	r.arena.Each(func(_ resource.Handle, set *resource.Set) {
		set.Destroy(device)
	})
}

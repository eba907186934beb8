package pass

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/gputypes"
)

// ClearValue is the value an attachment is cleared to when a subpass
// renders into it.
type ClearValue struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint32
}

// DefaultDepthClear clears depth to the far plane.
var DefaultDepthClear = ClearValue{Depth: 1}

// AttachmentGroup is an ordered, fixed-capacity list of render targets
// with their clear values. A depth attachment, if any, is the last one.
type AttachmentGroup struct {
	capacity int
	sets     []*resource.Set
	clears   []ClearValue
	depth    bool
}

// NewAttachmentGroup returns a group that will hold capacity attachments.
func NewAttachmentGroup(capacity int) *AttachmentGroup {
	return &AttachmentGroup{
		capacity: capacity,
		sets:     make([]*resource.Set, 0, capacity),
		clears:   make([]ClearValue, 0, capacity),
	}
}

// Add appends an attachment.
func (g *AttachmentGroup) Add(set *resource.Set, clear ClearValue) error {
	if len(g.sets) == g.capacity {
		return fmt.Errorf("attachment %s: %d declared: %w", set.Name(), g.capacity, framegraph.ErrCapacityExceeded)
	}
	if g.depth {
		return fmt.Errorf("attachment %s after depth: %w", set.Name(), ErrDepthNotLast)
	}
	g.sets = append(g.sets, set)
	g.clears = append(g.clears, clear)
	g.depth = set.Kind() == resource.KindDepth
	return nil
}

// Len returns the number of attachments added.
func (g *AttachmentGroup) Len() int { return len(g.sets) }

// Cap returns the declared number of attachments.
func (g *AttachmentGroup) Cap() int { return g.capacity }

// Complete reports whether every declared attachment was added.
func (g *AttachmentGroup) Complete() bool { return len(g.sets) == g.capacity }

// Set returns attachment i.
func (g *AttachmentGroup) Set(i int) *resource.Set { return g.sets[i] }

// Clear returns the clear value of attachment i.
func (g *AttachmentGroup) Clear(i int) ClearValue { return g.clears[i] }

// Index returns the position of set in the group, or -1.
func (g *AttachmentGroup) Index(set *resource.Set) int {
	for i, s := range g.sets {
		if s == set {
			return i
		}
	}
	return -1
}

// Depth returns the depth attachment, or nil.
func (g *AttachmentGroup) Depth() *resource.Set {
	if !g.depth {
		return nil
	}
	return g.sets[len(g.sets)-1]
}

// Validate checks that the group is complete and that the images of frame
// are initialized and share one width and height.
func (g *AttachmentGroup) Validate(frame int) error {
	if !g.Complete() {
		return fmt.Errorf("%d of %d attachments: %w", len(g.sets), g.capacity, ErrIncomplete)
	}
	var w, h uint32
	for i, s := range g.sets {
		img := s.Image(frame)
		if !img.Initialized() {
			return fmt.Errorf("%s: %w", img.Label(), ErrNotInitialized)
		}
		if i == 0 {
			w, h = img.Width(), img.Height()
			continue
		}
		if img.Width() != w || img.Height() != h {
			return fmt.Errorf("%s is %dx%d, %s is %dx%d: %w",
				img.Label(), img.Width(), img.Height(), g.sets[0].Image(frame).Label(), w, h, ErrDimensionMismatch)
		}
	}
	return nil
}

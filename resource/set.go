package resource

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// MaxTransitions bounds the transitions a set may log per frame.
const MaxTransitions = 32

// Transition is one entry of the layout ledger.
type Transition struct {
	Previous Layout
	Current  Layout
	Usage    Usage
}

func (t Transition) String() string {
	return fmt.Sprintf("%v->%v (%v)", t.Previous, t.Current, t.Usage)
}

// Set is one logical resource: FramesInFlight images for per-frame
// targets, or a single shared image for persistent textures and volumes.
//
// The set keeps a FIFO ledger of the transitions nodes declared on it. The
// barrier pass pops the ledger each frame; ResetImageLayout moves every
// consumed transition back to pending, in the same order, for the next
// frame.
type Set struct {
	name   string
	kind   Kind
	images []*Image

	ledger [MaxTransitions]Transition
	n      int // logged
	head   int // consumed this frame
}

// NewSet allocates the images of a resource.
func NewSet(name string, kind Kind) *Set {
	count := framegraph.FramesInFlight
	if kind.Shared() {
		count = 1
	}
	s := &Set{name: name, kind: kind, images: make([]*Image, count)}
	for i := range s.images {
		label := name
		if count > 1 {
			label = fmt.Sprintf("%s[%d]", name, i)
		}
		s.images[i] = NewImage(label, kind)
	}
	return s
}

// Name returns the registered resource name.
func (s *Set) Name() string { return s.name }

// Kind returns the resource kind.
func (s *Set) Kind() Kind { return s.kind }

// Len returns the number of images, 1 for shared sets.
func (s *Set) Len() int { return len(s.images) }

// Image returns the image used by the given frame in flight.
func (s *Set) Image(frame int) *Image {
	if len(s.images) == 1 {
		return s.images[0]
	}
	return s.images[frame%len(s.images)]
}

// Images returns every image of the set.
func (s *Set) Images() []*Image { return s.images }

// SetExtent sets the dimensions of every image.
func (s *Set) SetExtent(w, h, d uint32) {
	for _, img := range s.images {
		img.SetExtent(w, h, d)
	}
}

// SetMipLevels sets the mip level count of every image.
func (s *Set) SetMipLevels(n uint32) {
	for _, img := range s.images {
		img.SetMipLevels(n)
	}
}

// SetFormat sets the format of every image.
func (s *Set) SetFormat(f gputypes.TextureFormat) {
	for _, img := range s.images {
		img.SetFormat(f)
	}
}

// SetFilter sets the filter mode of every image.
func (s *Set) SetFilter(f gputypes.FilterMode) {
	for _, img := range s.images {
		img.SetFilter(f)
	}
}

// Initialized reports whether every image has GPU objects.
func (s *Set) Initialized() bool {
	for _, img := range s.images {
		if !img.Initialized() {
			return false
		}
	}
	return true
}

// Init creates GPU objects for every image not yet initialized. Present
// sets are skipped; their images are bound by the swapchain.
func (s *Set) Init(device hal.Device) error {
	if s.kind == KindPresent {
		return nil
	}
	for _, img := range s.images {
		if img.Initialized() {
			continue
		}
		if err := img.Init(device); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases every image.
func (s *Set) Destroy(device hal.Device) {
	for _, img := range s.images {
		img.Destroy(device)
	}
}

// LogTransition appends the transition into the layout required by u.
// Previous is the layout of the last logged transition, or the original
// layout of the kind when the ledger is empty.
func (s *Set) LogTransition(u Usage) (Transition, error) {
	cur := LayoutFor(s.kind, u)
	if !cur.Transferable() {
		return Transition{}, fmt.Errorf("%s: %v for %v: %w", s.name, u, s.kind, ErrInvalidLayout)
	}
	if s.n == MaxTransitions {
		return Transition{}, fmt.Errorf("%s: ledger of %d: %w", s.name, MaxTransitions, framegraph.ErrCapacityExceeded)
	}
	prev := s.kind.OriginalLayout()
	if s.n > 0 {
		prev = s.ledger[s.n-1].Current
	}
	t := Transition{Previous: prev, Current: cur, Usage: u}
	s.ledger[s.n] = t
	s.n++
	return t, nil
}

// PopTransition consumes the oldest pending transition.
func (s *Set) PopTransition() (Transition, error) {
	if s.head == s.n {
		return Transition{}, fmt.Errorf("%s: %w", s.name, ErrLedgerEmpty)
	}
	t := s.ledger[s.head]
	s.head++
	return t, nil
}

// LastTransition returns the most recently logged transition.
func (s *Set) LastTransition() (Transition, bool) {
	if s.n == 0 {
		return Transition{}, false
	}
	return s.ledger[s.n-1], true
}

// Pending returns the number of transitions not yet consumed this frame.
func (s *Set) Pending() int { return s.n - s.head }

// Used returns the number of transitions consumed this frame.
func (s *Set) Used() int { return s.head }

// ResetImageLayout recycles every consumed transition for the next frame.
// All pending transitions must have been consumed.
func (s *Set) ResetImageLayout() error {
	if s.head != s.n {
		return fmt.Errorf("%s: %d left: %w", s.name, s.n-s.head, ErrLedgerPending)
	}
	s.head = 0
	return nil
}

// Rewind returns every transition consumed this frame to pending, in the
// same order. It is used when a frame is abandoned part way.
func (s *Set) Rewind() { s.head = 0 }

// ResetFrame returns the image of a transient set used by frame to its
// original layout. Shared sets keep their layout across frames.
func (s *Set) ResetFrame(frame int) {
	if s.kind.Transient() {
		s.Image(frame).ResetLayout()
	}
}

package resource

import "fmt"

// Handle refers to a Set stored in an Arena. The zero Handle is invalid.
type Handle struct {
	Kind       Kind
	Index      uint32
	Generation uint32
}

// Valid reports whether h was ever issued by an arena.
func (h Handle) Valid() bool { return h.Generation != 0 }

func (h Handle) String() string {
	return fmt.Sprintf("%v#%d.%d", h.Kind, h.Index, h.Generation)
}

type slot struct {
	set *Set
	gen uint32
}

// Arena owns sets and hands out generation-checked handles. Removed slots
// are reused with a bumped generation so that old handles go stale.
type Arena struct {
	slots []slot
	free  []uint32
	live  int
}

// Insert stores s and returns its handle.
func (a *Arena) Insert(s *Set) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	sl := &a.slots[idx]
	sl.gen++
	sl.set = s
	a.live++
	return Handle{Kind: s.Kind(), Index: idx, Generation: sl.gen}
}

// Get resolves h.
func (a *Arena) Get(h Handle) (*Set, error) {
	if !h.Valid() || int(h.Index) >= len(a.slots) {
		return nil, fmt.Errorf("%v: %w", h, ErrStaleHandle)
	}
	sl := a.slots[h.Index]
	if sl.gen != h.Generation || sl.set == nil || sl.set.Kind() != h.Kind {
		return nil, fmt.Errorf("%v: %w", h, ErrStaleHandle)
	}
	return sl.set, nil
}

// Remove frees the slot of h and returns the set it held.
func (a *Arena) Remove(h Handle) (*Set, error) {
	s, err := a.Get(h)
	if err != nil {
		return nil, err
	}
	a.slots[h.Index].set = nil
	a.free = append(a.free, h.Index)
	a.live--
	return s, nil
}

// Len returns the number of live sets.
func (a *Arena) Len() int { return a.live }

// Each calls fn for every live set in slot order.
func (a *Arena) Each(fn func(Handle, *Set)) {
	for i, sl := range a.slots {
		if sl.set == nil {
			continue
		}
		fn(Handle{Kind: sl.set.Kind(), Index: uint32(i), Generation: sl.gen}, sl.set)
	}
}

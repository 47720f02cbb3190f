package ecs

import "fmt"

// Handle is a non-owning reference into a specific ResourceAllocator slot.
// Holding a handle does not keep the slot alive. Two handles are equal iff
// they name the same slot of the same allocator at the same generation.
// The zero Handle is the null handle.
type Handle[T any] struct {
	index      int
	generation uint32
	alloc      *ResourceAllocator[T]
}

func (h Handle[T]) Index() int                       { return h.index }
func (h Handle[T]) Generation() uint32               { return h.generation }
func (h Handle[T]) Allocator() *ResourceAllocator[T] { return h.alloc }
func (h Handle[T]) IsNull() bool                     { return h.alloc == nil }

// Valid reports whether the handle still refers to a live slot.
func (h Handle[T]) Valid() bool {
	return h.alloc != nil &&
		h.alloc.IsAllocated(h.index) &&
		h.alloc.generations[h.index] == h.generation
}

// Get dereferences the handle. It returns ErrInvalidHandle for null,
// out-of-range or unoccupied slots and ErrStaleHandle when the slot has been
// freed since the handle was taken.
func (h Handle[T]) Get() (*T, error) {
	if h.alloc == nil {
		return nil, fmt.Errorf("null handle: %w", ErrInvalidHandle)
	}
	if h.index < 0 || h.index >= len(h.alloc.items) {
		return nil, fmt.Errorf("index %d out of range: %w", h.index, ErrInvalidHandle)
	}
	if h.alloc.generations[h.index] != h.generation {
		return nil, fmt.Errorf("slot %d generation %d, handle %d: %w",
			h.index, h.alloc.generations[h.index], h.generation, ErrStaleHandle)
	}
	if !h.alloc.occupied[h.index] {
		return nil, fmt.Errorf("slot %d not allocated: %w", h.index, ErrInvalidHandle)
	}
	return &h.alloc.items[h.index], nil
}

// MustGet is Get for callers that treat a bad handle as a logic bug.
func (h Handle[T]) MustGet() *T {
	v, err := h.Get()
	if err != nil {
		panic(err)
	}
	return v
}

func (h Handle[T]) String() string {
	if h.alloc == nil {
		return "Handle(null)"
	}
	return fmt.Sprintf("Handle(%d@%d)", h.index, h.generation)
}

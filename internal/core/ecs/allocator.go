package ecs

import (
	"fmt"
	"iter"
)

// Destroyer is implemented by slot values that need teardown when their slot
// is deallocated. Destroy runs exactly once per deallocation.
type Destroyer interface {
	Destroy()
}

// ResourceAllocator is a fixed-capacity object pool keyed by slot index.
// Slots are never moved: Resize only extends the backing storage, so indices
// held in handles stay valid. It never grows on its own.
//
// Each slot carries a generation that is bumped on Deallocate; handles capture
// it so a dereference after the slot was freed is detected instead of aliasing
// whatever now lives there.
type ResourceAllocator[T any] struct {
	items       []T
	occupied    []bool
	generations []uint32
	count       int
}

func NewResourceAllocator[T any](capacity int) *ResourceAllocator[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &ResourceAllocator[T]{
		items:       make([]T, capacity),
		occupied:    make([]bool, capacity),
		generations: make([]uint32, capacity),
	}
}

// Allocate claims the lowest free slot and returns its index. The slot holds
// the zero value of T; the caller initializes it in place through Get.
// Panics with ErrCapacityExhausted when every slot is taken.
func (a *ResourceAllocator[T]) Allocate() int {
	idx, err := a.TryAllocate()
	if err != nil {
		panic(fmt.Errorf("allocate: %d/%d slots in use: %w", a.count, len(a.items), err))
	}
	return idx
}

// TryAllocate is Allocate returning ErrCapacityExhausted instead of panicking.
func (a *ResourceAllocator[T]) TryAllocate() (int, error) {
	for i, used := range a.occupied {
		if !used {
			a.occupied[i] = true
			a.count++
			return i, nil
		}
	}
	return -1, ErrCapacityExhausted
}

// Deallocate tears down the value in slot idx and frees the slot. Panics if
// the slot is not occupied.
func (a *ResourceAllocator[T]) Deallocate(idx int) {
	a.mustOccupied(idx, "deallocate")
	if d, ok := any(&a.items[idx]).(Destroyer); ok {
		d.Destroy()
	}
	var zero T
	a.items[idx] = zero
	a.occupied[idx] = false
	a.generations[idx]++
	a.count--
}

// Resize extends the allocator to capacity slots. Shrinking is a no-op.
// Pointers obtained from Get before a Resize must not be used after it.
func (a *ResourceAllocator[T]) Resize(capacity int) {
	if capacity <= len(a.items) {
		return
	}
	grow := capacity - len(a.items)
	a.items = append(a.items, make([]T, grow)...)
	a.occupied = append(a.occupied, make([]bool, grow)...)
	a.generations = append(a.generations, make([]uint32, grow)...)
}

// Get returns the live value in slot idx. Panics with ErrInvalidHandle when
// idx is out of range or unoccupied.
func (a *ResourceAllocator[T]) Get(idx int) *T {
	a.mustOccupied(idx, "get")
	return &a.items[idx]
}

func (a *ResourceAllocator[T]) IsAllocated(idx int) bool {
	return idx >= 0 && idx < len(a.occupied) && a.occupied[idx]
}

// Generation returns the current generation of slot idx, or 0 if out of range.
func (a *ResourceAllocator[T]) Generation(idx int) uint32 {
	if idx < 0 || idx >= len(a.generations) {
		return 0
	}
	return a.generations[idx]
}

// Len returns the number of allocated slots.
func (a *ResourceAllocator[T]) Len() int { return a.count }

// Cap returns the number of slots, allocated or not.
func (a *ResourceAllocator[T]) Cap() int { return len(a.items) }

// Full reports whether the next Allocate would fail.
func (a *ResourceAllocator[T]) Full() bool { return a.count == len(a.items) }

// Handle returns a handle to slot idx stamped with its current generation.
func (a *ResourceAllocator[T]) Handle(idx int) Handle[T] {
	a.mustOccupied(idx, "handle")
	return Handle[T]{index: idx, generation: a.generations[idx], alloc: a}
}

// All iterates occupied slots in ascending index order. The view is live:
// allocating or freeing slots while ranging is not supported.
func (a *ResourceAllocator[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := range a.occupied {
			if !a.occupied[i] {
				continue
			}
			if !yield(i, &a.items[i]) {
				return
			}
		}
	}
}

func (a *ResourceAllocator[T]) mustOccupied(idx int, op string) {
	if idx < 0 || idx >= len(a.items) {
		panic(fmt.Errorf("%s: index %d out of range [0,%d): %w", op, idx, len(a.items), ErrInvalidHandle))
	}
	if !a.occupied[idx] {
		panic(fmt.Errorf("%s: slot %d not allocated: %w", op, idx, ErrInvalidHandle))
	}
}

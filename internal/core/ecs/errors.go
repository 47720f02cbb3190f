package ecs

import "errors"

var (
	// ErrCapacityExhausted is raised when Allocate finds no free slot. Callers
	// must Resize before allocating.
	ErrCapacityExhausted = errors.New("ecs: allocator capacity exhausted")
	// ErrInvalidHandle marks an out-of-range, unoccupied or null slot access.
	ErrInvalidHandle = errors.New("ecs: invalid handle")
	// ErrStaleHandle marks a handle whose slot was freed (and possibly reused)
	// after the handle was taken.
	ErrStaleHandle = errors.New("ecs: stale handle")

	ErrComponentNotFound   = errors.New("ecs: component not found for entity")
	ErrComponentExists     = errors.New("ecs: entity already has component")
	ErrSystemNotRegistered = errors.New("ecs: no system registered for component type")
	ErrDuplicateSystem     = errors.New("ecs: system already registered")
	ErrEntityAlive         = errors.New("ecs: entity id already in use")
	ErrInvalidEntity       = errors.New("ecs: invalid entity")
)

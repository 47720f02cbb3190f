package ecs

import (
	"fmt"
	"reflect"
)

// Component is embedded by every component type. Its fields are bound by the
// owning System when the component is added; user code never sets them.
//
//	type Transform struct {
//		ecs.Component
//		Position [3]float32
//	}
type Component struct {
	entity     Entity
	index      int
	generation uint32
}

// Entity returns the entity the component is attached to.
func (c *Component) Entity() Entity { return c.entity }

// Slot returns the allocator slot and generation the component lives in.
func (c *Component) Slot() (int, uint32) { return c.index, c.generation }

func (c *Component) component() *Component { return c }

type componentBinder interface {
	component() *Component
}

func baseOf(v any) *Component {
	b, ok := v.(componentBinder)
	if !ok {
		return nil
	}
	return b.component()
}

// ComponentRef is implemented by *Handle[T] so archives can persist a
// cross-reference to another component as a portable (system, entity id)
// pair instead of a slot index.
type ComponentRef interface {
	RefTarget(s *Scene) (system string, entity uint32)
	ResolveRef(s *Scene, system string, entity uint32) error
}

// RefTarget returns the system name and owner entity id of the referenced
// component, or ("", 0) for a null or dead handle.
func (h *Handle[T]) RefTarget(s *Scene) (string, uint32) {
	if s == nil || !h.Valid() {
		return "", 0
	}
	sys, ok := s.byType[reflect.TypeFor[T]()]
	if !ok {
		return "", 0
	}
	base := baseOf(&h.alloc.items[h.index])
	if base == nil {
		return "", 0
	}
	return sys.Name(), base.entity.id
}

// ResolveRef points h at the component of entity held by the named system.
// An empty system name resolves to the null handle.
func (h *Handle[T]) ResolveRef(s *Scene, system string, entity uint32) error {
	*h = Handle[T]{}
	if system == "" || entity == 0 {
		return nil
	}
	if s == nil {
		return fmt.Errorf("resolve %s/%d: no scene: %w", system, entity, ErrInvalidEntity)
	}
	sys, ok := s.byName[system]
	if !ok {
		return fmt.Errorf("resolve %s/%d: %w", system, entity, ErrSystemNotRegistered)
	}
	store, ok := sys.(storage[T])
	if !ok {
		return fmt.Errorf("resolve %s/%d: system stores %s, not %s: %w",
			system, entity, sys.ComponentType(), reflect.TypeFor[T](), ErrSystemNotRegistered)
	}
	ref, err := store.base().Get(Entity{scene: s, id: entity})
	if err != nil {
		return fmt.Errorf("resolve %s/%d: %w", system, entity, err)
	}
	*h = ref
	return nil
}

// HandleOf returns the handle of a component that lives in a system's storage.
func HandleOf[T any](c *T) (Handle[T], error) {
	base := baseOf(c)
	if base == nil || base.entity.scene == nil {
		return Handle[T]{}, ErrInvalidHandle
	}
	sys, err := systemFor[T](base.entity.scene)
	if err != nil {
		return Handle[T]{}, err
	}
	alloc := sys.alloc
	if !alloc.IsAllocated(base.index) || alloc.generations[base.index] != base.generation {
		return Handle[T]{}, ErrStaleHandle
	}
	return Handle[T]{index: base.index, generation: base.generation, alloc: alloc}, nil
}

// AddComponent attaches a new T to e through the System registered for T.
func AddComponent[T any](e Entity) (Handle[T], error) {
	sys, err := systemFor[T](e.scene)
	if err != nil {
		return Handle[T]{}, err
	}
	return sys.Add(e)
}

// GetComponent returns the handle of e's T component.
func GetComponent[T any](e Entity) (Handle[T], error) {
	sys, err := systemFor[T](e.scene)
	if err != nil {
		return Handle[T]{}, err
	}
	return sys.Get(e)
}

// RemoveComponent detaches e's T component, running the system's OnEnd hook.
func RemoveComponent[T any](e Entity) error {
	sys, err := systemFor[T](e.scene)
	if err != nil {
		return err
	}
	return sys.Remove(e)
}

func HasComponent[T any](e Entity) bool {
	sys, err := systemFor[T](e.scene)
	if err != nil {
		return false
	}
	_, err = sys.ComponentIndexByEntity(e)
	return err == nil
}

func systemFor[T any](s *Scene) (*System[T], error) {
	if s == nil {
		return nil, ErrInvalidEntity
	}
	t := reflect.TypeFor[T]()
	sys, ok := s.byType[t]
	if !ok {
		return nil, fmt.Errorf("%s: %w", t, ErrSystemNotRegistered)
	}
	return sys.(storage[T]).base(), nil
}

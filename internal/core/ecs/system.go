package ecs

import (
	"fmt"
	"iter"
	"reflect"
	"time"

	"github.com/l1jgo/engine/internal/core/reflection"
	"go.uber.org/zap"
)

const defaultSystemCapacity = 64

// ISystem is the type-erased view the Scene and the archives use to walk
// heterogeneous systems. Every ISystem embeds a *System[T]; the unexported
// methods keep other implementations out.
type ISystem interface {
	Name() string
	ComponentType() reflect.Type
	RunsInEditor() bool
	Len() int

	// Entities returns the owners of all live components in slot order.
	Entities() []Entity
	AddTo(e Entity) error
	RemoveFrom(e Entity) error
	Has(e Entity) bool
	SerializeEntity(e Entity, ctx reflection.Context) error
	InspectEntity(e Entity, ctx reflection.Context) error

	bind(s *Scene, self ISystem)
	newEntity(e Entity)
	dropEntity(e Entity)
	tick(dt time.Duration)
	lateTick(dt time.Duration)
	preRender(dt time.Duration)
	shutdown()
}

// storage exposes the typed System behind an ISystem.
type storage[T any] interface {
	ISystem
	base() *System[T]
}

// System owns the storage for one component type. T must embed Component.
type System[T any] struct {
	name     string
	alloc    *ResourceAllocator[T]
	scene    *Scene
	self     ISystem
	inEditor bool
	log      *zap.Logger
}

type SystemOption func(*systemConfig)

type systemConfig struct {
	capacity     int
	skipInEditor bool
}

// WithCapacity sets the initial slot count. The system doubles it when full.
func WithCapacity(n int) SystemOption {
	return func(c *systemConfig) { c.capacity = n }
}

// SkipInEditor stops the scene from driving this system while it is in
// editor mode.
func SkipInEditor() SystemOption {
	return func(c *systemConfig) { c.skipInEditor = true }
}

func NewSystem[T any](name string, opts ...SystemOption) *System[T] {
	if _, ok := any(new(T)).(componentBinder); !ok {
		panic(fmt.Sprintf("ecs: component type %s does not embed ecs.Component", reflect.TypeFor[T]()))
	}
	cfg := systemConfig{capacity: defaultSystemCapacity}
	for _, o := range opts {
		o(&cfg)
	}
	s := &System[T]{
		name:     name,
		alloc:    NewResourceAllocator[T](cfg.capacity),
		inEditor: !cfg.skipInEditor,
		log:      zap.NewNop(),
	}
	s.self = s
	return s
}

func (s *System[T]) Name() string                     { return s.name }
func (s *System[T]) ComponentType() reflect.Type      { return reflect.TypeFor[T]() }
func (s *System[T]) RunsInEditor() bool               { return s.inEditor }
func (s *System[T]) Len() int                         { return s.alloc.Len() }
func (s *System[T]) Scene() *Scene                    { return s.scene }
func (s *System[T]) Allocator() *ResourceAllocator[T] { return s.alloc }
func (s *System[T]) Logger() *zap.Logger              { return s.log }

func (s *System[T]) base() *System[T] { return s }

func (s *System[T]) bind(scene *Scene, self ISystem) {
	s.scene = scene
	s.self = self
	s.log = scene.log.With(zap.String("system", s.name))
}

// Add allocates a component for e, binds it and runs OnBegin.
func (s *System[T]) Add(e Entity) (Handle[T], error) {
	if !e.IsValid() || e.scene != s.scene {
		return Handle[T]{}, fmt.Errorf("add %s to %s: %w", e, s.name, ErrInvalidEntity)
	}
	if _, err := s.ComponentIndexByEntity(e); err == nil {
		return Handle[T]{}, fmt.Errorf("add %s to %s: %w", e, s.name, ErrComponentExists)
	}
	if s.alloc.Full() {
		s.alloc.Resize(max(2*s.alloc.Cap(), 8))
		s.log.Debug("resized component storage", zap.Int("capacity", s.alloc.Cap()))
	}
	idx := s.alloc.Allocate()
	c := baseOf(s.alloc.Get(idx))
	c.entity = e
	c.index = idx
	c.generation = s.alloc.Generation(idx)
	h := s.alloc.Handle(idx)

	if b, ok := s.self.(Beginner[T]); ok {
		b.OnBegin(h)
	}
	emit(s.scene, ComponentAdded{Entity: e, System: s.name})
	return h, nil
}

// Get returns the handle of e's component.
func (s *System[T]) Get(e Entity) (Handle[T], error) {
	idx, err := s.ComponentIndexByEntity(e)
	if err != nil {
		return Handle[T]{}, err
	}
	return s.alloc.Handle(idx), nil
}

// Remove runs OnEnd for e's component and frees its slot.
func (s *System[T]) Remove(e Entity) error {
	idx, err := s.ComponentIndexByEntity(e)
	if err != nil {
		return err
	}
	h := s.alloc.Handle(idx)
	if en, ok := s.self.(Ender[T]); ok {
		en.OnEnd(h)
	}
	// OnEnd may already have removed it.
	if h.Valid() {
		s.alloc.Deallocate(idx)
	}
	emit(s.scene, ComponentRemoved{Entity: e, System: s.name})
	return nil
}

// ComponentIndexByEntity scans every live slot for e's component.
func (s *System[T]) ComponentIndexByEntity(e Entity) (int, error) {
	for idx, c := range s.alloc.All() {
		if baseOf(c).entity == e {
			return idx, nil
		}
	}
	return -1, fmt.Errorf("%s has no %s component: %w", e, s.name, ErrComponentNotFound)
}

// All iterates live components in ascending slot order.
func (s *System[T]) All() iter.Seq2[Handle[T], *T] {
	return func(yield func(Handle[T], *T) bool) {
		for idx, c := range s.alloc.All() {
			if !yield(s.alloc.Handle(idx), c) {
				return
			}
		}
	}
}

func (s *System[T]) Entities() []Entity {
	out := make([]Entity, 0, s.alloc.Len())
	for _, c := range s.alloc.All() {
		out = append(out, baseOf(c).entity)
	}
	return out
}

func (s *System[T]) AddTo(e Entity) error {
	_, err := s.Add(e)
	return err
}

func (s *System[T]) RemoveFrom(e Entity) error {
	return s.Remove(e)
}

func (s *System[T]) Has(e Entity) bool {
	_, err := s.ComponentIndexByEntity(e)
	return err == nil
}

// SerializeEntity runs the serialize body of e's component against ctx: the
// system's Serializer hook if it has one, else the component's Reflect.
func (s *System[T]) SerializeEntity(e Entity, ctx reflection.Context) error {
	h, err := s.Get(e)
	if err != nil {
		return err
	}
	s.serialize(h, ctx)
	return nil
}

func (s *System[T]) InspectEntity(e Entity, ctx reflection.Context) error {
	h, err := s.Get(e)
	if err != nil {
		return err
	}
	if in, ok := s.self.(Inspector[T]); ok {
		in.Inspect(h, ctx)
		return nil
	}
	s.serialize(h, ctx)
	return nil
}

func (s *System[T]) serialize(h Handle[T], ctx reflection.Context) {
	if ser, ok := s.self.(Serializer[T]); ok {
		ser.Serialize(h, ctx)
		return
	}
	if r, ok := any(h.MustGet()).(reflection.Reflector); ok {
		r.Reflect(ctx)
	}
}

func (s *System[T]) newEntity(e Entity) {
	if o, ok := s.self.(EntityObserver); ok {
		o.OnNewEntity(e)
	}
}

func (s *System[T]) dropEntity(e Entity) {
	// Most systems hold nothing for most entities.
	_ = s.Remove(e)
}

func (s *System[T]) tick(dt time.Duration) {
	if t, ok := s.self.(Ticker); ok {
		t.OnTick(dt)
	}
}

func (s *System[T]) lateTick(dt time.Duration) {
	if t, ok := s.self.(LateTicker); ok {
		t.OnLateTick(dt)
	}
}

func (s *System[T]) preRender(dt time.Duration) {
	if p, ok := s.self.(PreRenderer); ok {
		p.OnPreRender(dt)
	}
}

func (s *System[T]) shutdown() {
	if h, ok := s.self.(ShutdownHook); ok {
		h.OnShutdown()
	}
}

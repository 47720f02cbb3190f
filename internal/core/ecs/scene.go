package ecs

import (
	"fmt"
	"reflect"
	"time"

	"github.com/l1jgo/engine/internal/core/event"
	"go.uber.org/zap"
)

// Scene owns the systems and the entity id space, and drives the per-frame
// passes. It is single-threaded: nothing here may be called concurrently.
type Scene struct {
	name    string
	systems []ISystem
	byType  map[reflect.Type]ISystem
	byName  map[string]ISystem
	ids     *IDPool
	editor  bool
	frame   uint64
	bus     *event.Bus
	log     *zap.Logger
}

type SceneOption func(*Scene)

func WithLogger(log *zap.Logger) SceneOption {
	return func(s *Scene) { s.log = log }
}

func WithEventBus(bus *event.Bus) SceneOption {
	return func(s *Scene) { s.bus = bus }
}

func WithEditorMode(on bool) SceneOption {
	return func(s *Scene) { s.editor = on }
}

func NewScene(name string, opts ...SceneOption) *Scene {
	s := &Scene{
		name:    name,
		systems: make([]ISystem, 0, 16),
		byType:  make(map[reflect.Type]ISystem, 16),
		byName:  make(map[string]ISystem, 16),
		ids:     NewIDPool(),
		bus:     event.NewBus(),
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(zap.String("scene", name))
	return s
}

func (s *Scene) Name() string          { return s.name }
func (s *Scene) Bus() *event.Bus       { return s.bus }
func (s *Scene) Frame() uint64         { return s.frame }
func (s *Scene) EditorMode() bool      { return s.editor }
func (s *Scene) SetEditorMode(on bool) { s.editor = on }
func (s *Scene) Logger() *zap.Logger   { return s.log }

// Register adds a system. At most one system may exist per component type and
// per name. Systems are driven in registration order.
func (s *Scene) Register(sys ISystem) error {
	t := sys.ComponentType()
	if prev, ok := s.byType[t]; ok {
		return fmt.Errorf("register %s: %s already stored by %s: %w", sys.Name(), t, prev.Name(), ErrDuplicateSystem)
	}
	if _, ok := s.byName[sys.Name()]; ok {
		return fmt.Errorf("register %s: %w", sys.Name(), ErrDuplicateSystem)
	}
	sys.bind(s, sys)
	s.systems = append(s.systems, sys)
	s.byType[t] = sys
	s.byName[sys.Name()] = sys
	s.log.Debug("system registered", zap.String("system", sys.Name()), zap.Stringer("component", t))
	return nil
}

// Systems returns the registered systems in registration order.
func (s *Scene) Systems() []ISystem {
	return append([]ISystem(nil), s.systems...)
}

func (s *Scene) System(name string) (ISystem, bool) {
	sys, ok := s.byName[name]
	return sys, ok
}

// CreateEntity allocates an id (oldest freed id first) and lets every system
// observe the new entity.
func (s *Scene) CreateEntity() Entity {
	e := Entity{scene: s, id: s.ids.Create()}
	for _, sys := range s.systems {
		sys.newEntity(e)
	}
	emit(s, EntityCreated{Entity: e})
	return e
}

// RestoreEntity claims a specific id without notifying systems. Archives use
// it to rebuild an entity exactly as it was saved.
func (s *Scene) RestoreEntity(id uint32) (Entity, error) {
	if err := s.ids.Claim(id); err != nil {
		return Entity{}, err
	}
	e := Entity{scene: s, id: id}
	emit(s, EntityCreated{Entity: e})
	return e, nil
}

// DestroyEntity drops every component attached to e and frees its id.
// Destroying an invalid entity is a no-op.
func (s *Scene) DestroyEntity(e Entity) bool {
	if e.scene != s || !e.IsValid() {
		return false
	}
	for _, sys := range s.systems {
		sys.dropEntity(e)
	}
	s.ids.Destroy(e.id)
	emit(s, EntityDestroyed{Entity: e})
	return true
}

// Entity returns the entity value for id whether or not it is alive.
func (s *Scene) Entity(id uint32) Entity {
	if id == 0 {
		return Entity{}
	}
	return Entity{scene: s, id: id}
}

// EntityByID returns the live entity with the given id.
func (s *Scene) EntityByID(id uint32) (Entity, bool) {
	if !s.ids.Alive(id) {
		return Entity{}, false
	}
	return Entity{scene: s, id: id}, true
}

// Entities returns every live entity in ascending id order.
func (s *Scene) Entities() []Entity {
	ids := s.ids.Live()
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = Entity{scene: s, id: id}
	}
	return out
}

func (s *Scene) EntityCount() int {
	return len(s.ids.Live())
}

// FreeIDs returns the ids CreateEntity will reuse, next first.
func (s *Scene) FreeIDs() []uint32 { return s.ids.Free() }

// RestoreFreeIDs reorders the reuse queue to match a saved FreeIDs list.
func (s *Scene) RestoreFreeIDs(order []uint32) { s.ids.RestoreFree(order) }

// Tick delivers last frame's events, then runs three complete passes over
// every system: OnTick, OnLateTick, OnPreRender. A pass finishes for all
// systems before the next starts, so everything a system moves during tick
// and late tick is final before any system reads it in pre-render.
func (s *Scene) Tick(dt time.Duration) {
	s.frame++
	s.bus.SwapBuffers()
	s.bus.DispatchAll()

	systems := s.systems
	for _, sys := range systems {
		if s.runs(sys) {
			sys.tick(dt)
		}
	}
	for _, sys := range systems {
		if s.runs(sys) {
			sys.lateTick(dt)
		}
	}
	for _, sys := range systems {
		if s.runs(sys) {
			sys.preRender(dt)
		}
	}
}

// Shutdown destroys every live entity in ascending id order while all systems
// are still registered, then shuts systems down in reverse order.
func (s *Scene) Shutdown() {
	live := s.Entities()
	for _, e := range live {
		s.DestroyEntity(e)
	}
	for i := len(s.systems) - 1; i >= 0; i-- {
		s.systems[i].shutdown()
	}
	s.log.Debug("scene shut down", zap.Int("entities", len(live)), zap.Uint64("frames", s.frame))
	s.systems = s.systems[:0]
	clear(s.byType)
	clear(s.byName)
}

func (s *Scene) runs(sys ISystem) bool {
	return !s.editor || sys.RunsInEditor()
}

func emit[T any](s *Scene, ev T) {
	event.Emit(s.bus, ev)
}

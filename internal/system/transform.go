package system

import (
	"fmt"
	"time"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/reflection"
	"go.uber.org/zap"
)

// TransformSystem gives every new entity a Transform and resolves world
// positions through the parent chain once per frame, in late tick, so every
// system's tick sees last frame's world state and every pre-render sees this
// frame's.
type TransformSystem struct {
	*ecs.System[component.Transform]
	state map[uint32]uint8
}

const (
	unresolved uint8 = iota
	resolving
	resolved
)

func NewTransformSystem(opts ...ecs.SystemOption) *TransformSystem {
	return &TransformSystem{
		System: ecs.NewSystem[component.Transform]("Transform", opts...),
		state:  make(map[uint32]uint8),
	}
}

func (s *TransformSystem) OnNewEntity(e ecs.Entity) {
	if _, err := s.Add(e); err != nil {
		s.Logger().Warn("auto-attach transform failed", zap.Stringer("entity", e), zap.Error(err))
	}
}

func (s *TransformSystem) OnBegin(h ecs.Handle[component.Transform]) {
	h.MustGet().Reset()
}

// Inspect shows the persisted fields plus the resolved world placement,
// which is never archived.
func (s *TransformSystem) Inspect(h ecs.Handle[component.Transform], ctx reflection.Context) {
	t := h.MustGet()
	t.Reflect(ctx)
	ctx.Field("world", &t.World)
	ctx.Field("world_rotation", &t.WorldRotation)
}

func (s *TransformSystem) OnLateTick(time.Duration) {
	s.Resolve()
}

// Resolve recomputes World and WorldRotation for every transform. A parent
// without a Transform, or a parent cycle, makes the child a root.
func (s *TransformSystem) Resolve() {
	clear(s.state)
	for _, t := range s.All() {
		s.resolve(t)
	}
}

func (s *TransformSystem) resolve(t *component.Transform) {
	id := t.Entity().ID()
	switch s.state[id] {
	case resolved:
		return
	case resolving:
		s.Logger().Warn("transform parent cycle", zap.Stringer("entity", t.Entity()))
		t.World, t.WorldRotation = t.Position, t.Rotation
		return
	}
	s.state[id] = resolving

	parent := s.parentOf(t)
	if parent == nil {
		t.World, t.WorldRotation = t.Position, t.Rotation
	} else {
		s.resolve(parent)
		offset := parent.WorldRotation.Rotate(t.Position.Mul(parent.Scale))
		t.World = parent.World.Add(offset)
		t.WorldRotation = parent.WorldRotation.Mul(t.Rotation)
	}
	s.state[id] = resolved
}

func (s *TransformSystem) parentOf(t *component.Transform) *component.Transform {
	if !t.Parent.IsValid() {
		return nil
	}
	h, err := s.Get(t.Parent)
	if err != nil {
		return nil
	}
	return h.MustGet()
}

// SetParent attaches child under parent. A zero parent detaches. Parenting
// that would form a cycle is rejected.
func (s *TransformSystem) SetParent(child, parent ecs.Entity) error {
	h, err := s.Get(child)
	if err != nil {
		return err
	}
	if parent.IsZero() {
		h.MustGet().Parent = ecs.Entity{}
		return nil
	}
	for p := parent; p.IsValid(); {
		if p == child {
			return fmt.Errorf("parent %s under %s: %w", child, parent, ErrParentCycle)
		}
		ph, err := s.Get(p)
		if err != nil {
			break
		}
		p = ph.MustGet().Parent
	}
	h.MustGet().Parent = parent
	return nil
}

// Children returns the entities whose Parent is e, in slot order.
func (s *TransformSystem) Children(e ecs.Entity) []ecs.Entity {
	var out []ecs.Entity
	for _, t := range s.All() {
		if t.Parent == e {
			out = append(out, t.Entity())
		}
	}
	return out
}

package system

import (
	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
)

// NameSystem stores entity names and tags.
type NameSystem struct {
	*ecs.System[component.Name]
}

func NewNameSystem(opts ...ecs.SystemOption) *NameSystem {
	return &NameSystem{ecs.NewSystem[component.Name]("Name", opts...)}
}

// SetName names e, attaching a Name component when it has none.
func (s *NameSystem) SetName(e ecs.Entity, name string, tags ...string) error {
	h, err := s.Get(e)
	if err != nil {
		if h, err = s.Add(e); err != nil {
			return err
		}
	}
	n := h.MustGet()
	n.Value = name
	n.Tags = append(n.Tags[:0], tags...)
	return nil
}

// Find returns the first entity in slot order named name.
func (s *NameSystem) Find(name string) (ecs.Entity, bool) {
	for _, n := range s.All() {
		if n.Value == name {
			return n.Entity(), true
		}
	}
	return ecs.Entity{}, false
}

func (s *NameSystem) Tagged(tag string) []ecs.Entity {
	var out []ecs.Entity
	for _, n := range s.All() {
		if n.HasTag(tag) {
			out = append(out, n.Entity())
		}
	}
	return out
}

package component

import (
	"slices"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/reflection"
)

// Name labels an entity for lookup and for the editor's outliner.
type Name struct {
	ecs.Component
	Value string
	Tags  []string
}

func (n *Name) Reflect(ctx reflection.Context) {
	ctx.Field("value", &n.Value)
	ctx.Field("tags", &n.Tags)
}

func (n *Name) HasTag(tag string) bool { return slices.Contains(n.Tags, tag) }

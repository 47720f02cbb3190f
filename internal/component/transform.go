package component

import (
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/reflection"
)

// Transform places an entity in the scene, relative to Parent when Parent
// is set. Every entity gets one when it is created.
type Transform struct {
	ecs.Component

	Position Vec3
	Rotation Quat
	Scale    Vec3
	Parent   ecs.Entity

	// World is resolved from the parent chain once per frame during late
	// tick. Not persisted.
	World         Vec3
	WorldRotation Quat
}

func (t *Transform) Reflect(ctx reflection.Context) {
	ctx.Field("position", &t.Position)
	ctx.Field("rotation", &t.Rotation)
	ctx.Field("scale", &t.Scale)
	ctx.Field("parent", &t.Parent)
}

// Reset sets the identity transform.
func (t *Transform) Reset() {
	t.Position = Vec3{}
	t.Rotation = IdentityQuat
	t.Scale = Vec3{1, 1, 1}
	t.Parent = ecs.Entity{}
	t.World = Vec3{}
	t.WorldRotation = IdentityQuat
}

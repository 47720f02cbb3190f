package system

import (
	"fmt"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/resource"
	"github.com/l1jgo/engine/internal/scripting"
)

// Builtins holds the engine's built-in systems in registration order.
type Builtins struct {
	Transforms *TransformSystem
	Names      *NameSystem
	Render     *RenderSystem
	Scripts    *ScriptSystem
}

// RegisterBuiltins creates the built-in systems and registers them with
// scene. Transform goes first so every other system's OnNewEntity already
// sees the entity's Transform.
func RegisterBuiltins(scene *ecs.Scene, resources *resource.Manager, engine *scripting.Engine, capacity int) (*Builtins, error) {
	opt := ecs.WithCapacity(capacity)
	b := &Builtins{Transforms: NewTransformSystem(opt)}
	b.Names = NewNameSystem(opt)
	b.Render = NewRenderSystem(b.Transforms, resources, opt)
	b.Scripts = NewScriptSystem(engine, b.Transforms, opt)

	for _, sys := range []ecs.ISystem{b.Transforms, b.Names, b.Render, b.Scripts} {
		if err := scene.Register(sys); err != nil {
			return nil, fmt.Errorf("register %s: %w", sys.Name(), err)
		}
	}
	return b, nil
}

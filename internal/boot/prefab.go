package boot

import (
	"fmt"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/data"
	"github.com/l1jgo/engine/internal/resource"
	"go.uber.org/zap"
)

// SpawnPrefabs creates one entity per prefab, in table order, and returns
// them by prefab name. If any prefab fails, every entity this call created is
// destroyed again.
func (e *Engine) SpawnPrefabs(table *data.PrefabTable) (map[string]ecs.Entity, error) {
	spawned := make(map[string]ecs.Entity, table.Count())
	for _, p := range table.All() {
		ent, err := e.spawn(p, spawned)
		if err != nil {
			for _, done := range spawned {
				e.Scene.DestroyEntity(done)
			}
			return nil, fmt.Errorf("prefab %q: %w", p.Name, err)
		}
		spawned[p.Name] = ent
	}
	e.Log.Info("prefabs spawned", zap.Int("count", len(spawned)))
	return spawned, nil
}

// spawn builds one prefab entity. A failure destroys the partial entity.
func (e *Engine) spawn(p data.Prefab, spawned map[string]ecs.Entity) (ecs.Entity, error) {
	ent := e.Scene.CreateEntity()
	if err := e.build(ent, p, spawned); err != nil {
		e.Scene.DestroyEntity(ent)
		return ecs.Entity{}, err
	}
	return ent, nil
}

func (e *Engine) build(ent ecs.Entity, p data.Prefab, spawned map[string]ecs.Entity) error {
	sys := e.Systems

	th, err := sys.Transforms.Get(ent)
	if err != nil {
		return err
	}
	t := th.MustGet()
	t.Position = p.Position
	if p.Scale != ([3]float32{}) {
		t.Scale = p.Scale
	}
	if p.Parent != "" {
		if err := sys.Transforms.SetParent(ent, spawned[p.Parent]); err != nil {
			return err
		}
	}

	if err := sys.Names.SetName(ent, p.Name, p.Tags...); err != nil {
		return err
	}

	if p.Mesh != "" {
		layer, err := component.ParseLayer(p.Layer)
		if err != nil {
			return err
		}
		rh, err := sys.Render.Add(ent)
		if err != nil {
			return err
		}
		r := rh.MustGet()
		r.Layer = layer
		r.Mesh = lookup[resource.Mesh](e, resource.KindMesh, p.Mesh)
		r.Material = lookup[resource.MaterialShader](e, resource.KindMaterialShader, p.Material)
		r.Albedo = lookup[resource.Texture](e, resource.KindTexture, p.Albedo)
	}

	if p.Script != "" {
		sh, err := sys.Scripts.Add(ent)
		if err != nil {
			return err
		}
		s := sh.MustGet()
		s.Path = p.Script
		s.Args = p.Args
	}
	return nil
}

// lookup resolves a prefab's resource name. Unknown names give a null handle.
func lookup[R any](e *Engine, kind, name string) resource.Handle[R] {
	if name == "" {
		return resource.Handle[R]{}
	}
	h, ok := resource.Lookup[R](e.Resources, name)
	if !ok {
		e.Log.Warn("prefab references unknown resource", zap.String("kind", kind), zap.String("name", name))
	}
	return h
}

package system

import (
	"context"
	"testing"
	"time"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/reflection"
	"github.com/l1jgo/engine/internal/resource"
	"github.com/l1jgo/engine/internal/scripting"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"
)

type world struct {
	scene     *ecs.Scene
	resources *resource.Manager
	lua       *scripting.Engine
	*Builtins
}

func newWorld(t *testing.T) *world {
	t.Helper()
	log := zaptest.NewLogger(t)
	w := &world{
		scene:     ecs.NewScene("test", ecs.WithLogger(log)),
		resources: resource.RegisterBuiltins(resource.NewManager(log), 4),
	}
	var err error
	w.lua, err = scripting.NewEngine("", log)
	require.NoError(t, err)
	t.Cleanup(w.lua.Close)

	w.Builtins, err = RegisterBuiltins(w.scene, w.resources, w.lua, 2)
	require.NoError(t, err)
	return w
}

func (w *world) transform(t *testing.T, e ecs.Entity) *component.Transform {
	t.Helper()
	h, err := w.Transforms.Get(e)
	require.NoError(t, err)
	return h.MustGet()
}

const frame = 100 * time.Millisecond

func TestTransformSystem(t *testing.T) {
	w := newWorld(t)

	root := w.scene.CreateEntity()
	child := w.scene.CreateEntity()
	grandchild := w.scene.CreateEntity()

	t.Run("every entity gets an identity transform", func(t *testing.T) {
		tr := w.transform(t, root)
		require.Equal(t, component.IdentityQuat, tr.Rotation)
		require.Equal(t, component.Vec3{1, 1, 1}, tr.Scale)
		require.Equal(t, 3, w.Transforms.Len())
	})

	t.Run("world positions follow the parent chain", func(t *testing.T) {
		w.transform(t, root).Position = component.Vec3{10, 0, 0}
		w.transform(t, child).Position = component.Vec3{0, 5, 0}
		w.transform(t, grandchild).Position = component.Vec3{1, 1, 1}
		require.NoError(t, w.Transforms.SetParent(child, root))
		require.NoError(t, w.Transforms.SetParent(grandchild, child))

		w.scene.Tick(frame)
		require.Equal(t, component.Vec3{10, 0, 0}, w.transform(t, root).World)
		require.Equal(t, component.Vec3{10, 5, 0}, w.transform(t, child).World)
		require.Equal(t, component.Vec3{11, 6, 1}, w.transform(t, grandchild).World)
		require.Equal(t, []ecs.Entity{child}, w.Transforms.Children(root))
	})

	t.Run("editor view adds world placement", func(t *testing.T) {
		in := reflection.NewInspector()
		require.NoError(t, w.Transforms.InspectEntity(child, in))
		f, ok := in.Lookup("world")
		require.True(t, ok)
		require.Equal(t, component.Vec3{10, 5, 0}, f.Value())
		_, ok = in.Lookup("position")
		require.True(t, ok)

		saved := reflection.NewInspector()
		require.NoError(t, w.Transforms.SerializeEntity(child, saved))
		_, ok = saved.Lookup("world")
		require.False(t, ok, "world placement is not archived")
	})

	t.Run("cycles are rejected", func(t *testing.T) {
		require.ErrorIs(t, w.Transforms.SetParent(root, grandchild), ErrParentCycle)
		require.ErrorIs(t, w.Transforms.SetParent(root, root), ErrParentCycle)
	})

	t.Run("destroyed parent makes a root", func(t *testing.T) {
		w.scene.DestroyEntity(root)
		w.scene.Tick(frame)
		require.Equal(t, component.Vec3{0, 5, 0}, w.transform(t, child).World)
		require.NoError(t, w.Transforms.SetParent(child, ecs.Entity{}))
		require.True(t, w.transform(t, child).Parent.IsZero())
	})
}

func TestNameSystem(t *testing.T) {
	w := newWorld(t)
	a := w.scene.CreateEntity()
	b := w.scene.CreateEntity()

	require.NoError(t, w.Names.SetName(a, "player", "actor"))
	require.NoError(t, w.Names.SetName(b, "crate", "prop", "actor"))
	require.NoError(t, w.Names.SetName(b, "barrel", "prop"))

	got, ok := w.Names.Find("barrel")
	require.True(t, ok)
	require.Equal(t, b, got)
	_, ok = w.Names.Find("crate")
	require.False(t, ok)
	require.Equal(t, []ecs.Entity{a}, w.Names.Tagged("actor"))
	require.Equal(t, 2, w.Names.Len())
}

func TestRenderSystem(t *testing.T) {
	w := newWorld(t)
	meshes, _ := resource.PoolOf[resource.Mesh](w.resources)
	shaders, _ := resource.PoolOf[resource.MaterialShader](w.resources)
	cube, err := meshes.Add("cube", resource.Mesh{Name: "cube"})
	require.NoError(t, err)
	unlit, err := shaders.Add("unlit", resource.MaterialShader{Name: "unlit", Unlit: true})
	require.NoError(t, err)

	anchor := w.scene.CreateEntity()
	overlay := w.scene.CreateEntity()
	attached := w.scene.CreateEntity()
	hidden := w.scene.CreateEntity()
	w.transform(t, anchor).Position = component.Vec3{3, 0, 0}

	add := func(e ecs.Entity, layer component.Layer) *component.MeshRenderer {
		h, err := w.Render.Add(e)
		require.NoError(t, err)
		r := h.MustGet()
		r.Mesh, r.Material, r.Layer = cube, unlit, layer
		return r
	}
	add(overlay, component.LayerOverlay)
	add(anchor, component.LayerWorld)
	r := add(attached, component.LayerWorld)
	anchorTransform, err := w.Transforms.Get(anchor)
	require.NoError(t, err)
	r.Target = anchorTransform
	_, err = w.Render.Add(hidden) // no mesh
	require.NoError(t, err)

	w.scene.Tick(frame)
	snap := w.Render.Snapshot()
	require.Equal(t, uint64(1), snap.Frame)
	require.Len(t, snap.Items, 3)
	require.Equal(t, []uint32{anchor.ID(), attached.ID(), overlay.ID()},
		[]uint32{snap.Items[0].Entity, snap.Items[1].Entity, snap.Items[2].Entity})
	require.Equal(t, "cube", snap.Items[0].Mesh)
	require.Equal(t, "unlit", snap.Items[0].Material)
	require.Equal(t, "", snap.Items[0].Albedo)
	require.Equal(t, component.Vec3{3, 0, 0}, snap.Items[1].World, "attachment follows its anchor")
	require.Equal(t, [4]float32{1, 1, 1, 1}, snap.Items[2].Tint)

	worker := NewRenderWorker(w.Render, nil)
	require.NoError(t, worker.Run(context.Background(), 1))
	require.Equal(t, 3, worker.Draws)
	require.Equal(t, 2, worker.PerLayer[component.LayerWorld])
	require.Equal(t, uint64(1), worker.LastFrame)

	t.Run("unchanged frames keep the draw list", func(t *testing.T) {
		before := w.Render.Snapshot().Digest
		w.scene.Tick(frame)
		require.Equal(t, before, w.Render.Snapshot().Digest)
		require.NoError(t, worker.Run(context.Background(), 2))
		require.Equal(t, uint64(1), worker.Unchanged)
		require.Equal(t, uint64(2), worker.LastFrame)
		require.Equal(t, 3, worker.Draws)

		rh, err := w.Render.Get(attached)
		require.NoError(t, err)
		rh.MustGet().Tint[3] = 0.5
		w.scene.Tick(frame)
		require.NotEqual(t, before, w.Render.Snapshot().Digest)
		require.NoError(t, worker.Run(context.Background(), 3))
		require.Equal(t, uint64(1), worker.Unchanged)
		require.Equal(t, uint64(3), worker.Frames)
	})

	t.Run("lod follows camera distance", func(t *testing.T) {
		rh, err := w.Render.Get(overlay)
		require.NoError(t, err)
		rh.MustGet().LODDistances = []float32{5, 20}
		w.transform(t, overlay).Position = component.Vec3{0, 0, 3}

		lod := func(camera component.Vec3) (overlayLOD, anchorLOD int) {
			w.Render.SetCamera(camera)
			w.scene.Tick(frame)
			for _, it := range w.Render.Snapshot().Items {
				switch it.Entity {
				case overlay.ID():
					overlayLOD = it.LOD
				case anchor.ID():
					anchorLOD = it.LOD
				}
			}
			return overlayLOD, anchorLOD
		}

		near, anchorLOD := lod(component.Vec3{})
		require.Equal(t, 0, near)
		require.Equal(t, 0, anchorLOD, "no thresholds means one level")
		before := w.Render.Snapshot().Digest

		mid, _ := lod(component.Vec3{0, 0, -7})
		require.Equal(t, 1, mid)
		require.NotEqual(t, before, w.Render.Snapshot().Digest)

		far, anchorLOD := lod(component.Vec3{0, 0, -30})
		require.Equal(t, 2, far)
		require.Equal(t, 0, anchorLOD)
	})
}

func TestScriptSystem(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.lua.LoadBehaviour("walker", `
local speed = {}
return {
  on_begin = function(id, args) speed[id] = tonumber(args[1]) end,
  on_tick = function(id, dt)
    local x, y, z = get_position(id)
    set_position(id, x + speed[id], y, z)
  end,
  on_end = function(id) ended = id end,
}`))
	require.NoError(t, w.lua.LoadBehaviour("broken", `return { on_tick = function(id) error("nope") end }`))

	e := w.scene.CreateEntity()
	h, err := w.Scripts.Add(e)
	require.NoError(t, err)
	h.MustGet().Path = "walker"
	h.MustGet().Args = []string{"2"}

	w.scene.Tick(frame)
	w.scene.Tick(frame)
	require.Equal(t, float32(4), w.transform(t, e).Position[0])
	require.Equal(t, uint64(2), h.MustGet().Ticks)
	require.True(t, h.MustGet().Loaded())

	t.Run("editor mode pauses scripts", func(t *testing.T) {
		w.scene.SetEditorMode(true)
		w.scene.Tick(frame)
		w.scene.SetEditorMode(false)
		require.Equal(t, float32(4), w.transform(t, e).Position[0])
	})

	t.Run("errors disable the script", func(t *testing.T) {
		bad := w.scene.CreateEntity()
		bh, err := w.Scripts.Add(bad)
		require.NoError(t, err)
		bh.MustGet().Path = "broken"
		w.scene.Tick(frame)
		require.False(t, bh.MustGet().Enabled)

		nopath := w.scene.CreateEntity()
		nh, err := w.Scripts.Add(nopath)
		require.NoError(t, err)
		w.scene.Tick(frame)
		require.False(t, nh.MustGet().Enabled)
	})

	t.Run("on_end runs when the entity goes away", func(t *testing.T) {
		w.scene.DestroyEntity(e)
		require.Equal(t, lua.LNumber(e.ID()), w.lua.Global("ended"))
	})
}

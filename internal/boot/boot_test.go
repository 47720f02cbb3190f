package boot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/config"
	"github.com/l1jgo/engine/internal/data"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T, format string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	cfg := config.Default()
	cfg.Scene.Name = "boot"
	cfg.Scene.InitialCapacity = 2
	cfg.Scene.SnapshotDir = filepath.Join(dir, "snapshots")
	cfg.Scene.Manifest = write("manifest.yaml", `
shaders:
  - name: unlit
    unlit: true
meshes:
  - name: cube
    vertices: 24
textures:
  - name: brick
`)
	cfg.Scene.Prefabs = write("prefabs.yaml", `
- name: floor
  mesh: cube
  material: unlit
  albedo: brick
  scale: [10, 10, 10]
- name: lamp
  parent: floor
  position: [0, 2, 0]
  tags: [light]
  mesh: cube
  material: missing
  layer: overlay
  script: bob.lua
  args: ["0.5"]
`)
	cfg.Scripting.Dir = filepath.Join(dir, "scripts")
	write("scripts/bob.lua", `
return {
  on_tick = function(id, dt)
    local x, y, z = get_position(id)
    set_position(id, x, y + 1, z)
  end,
}`)
	cfg.Archive.Format = format
	cfg.Archive.ChunkSize = 64
	return cfg
}

func TestBootSnapshotRestore(t *testing.T) {
	for _, format := range []string{"binary", "yaml"} {
		t.Run(format, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, format)

			eng, err := New(ctx, cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			restored, err := eng.Restore(ctx)
			require.NoError(t, err)
			require.False(t, restored)
			require.NoError(t, eng.SpawnPrefabFile(cfg.Scene.Prefabs))
			require.Equal(t, 2, eng.Scene.EntityCount())

			for i := 0; i < 3; i++ {
				require.NoError(t, eng.Runner.Step(ctx, eng.Runner.Interval()))
			}
			require.Equal(t, 2, eng.Render.Draws)

			lamp, ok := eng.Systems.Names.Find("lamp")
			require.True(t, ok)
			th, err := eng.Systems.Transforms.Get(lamp)
			require.NoError(t, err)
			require.Equal(t, component.Vec3{0, 5, 0}, th.MustGet().Position)
			require.Equal(t, component.Vec3{0, 50, 0}, th.MustGet().World, "parent scale applies")

			require.NoError(t, eng.Snapshot(ctx))
			eng.Close()

			again, err := New(ctx, cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			defer again.Close()
			restored, err = again.Restore(ctx)
			require.NoError(t, err)
			require.True(t, restored)
			require.Equal(t, 2, again.Scene.EntityCount())

			lamp2, ok := again.Systems.Names.Find("lamp")
			require.True(t, ok)
			require.Equal(t, lamp.ID(), lamp2.ID())
			th2, err := again.Systems.Transforms.Get(lamp2)
			require.NoError(t, err)
			require.Equal(t, component.Vec3{0, 5, 0}, th2.MustGet().Position)

			rh, err := again.Systems.Render.Get(lamp2)
			require.NoError(t, err)
			r := rh.MustGet()
			require.Equal(t, component.LayerOverlay, r.Layer)
			require.True(t, r.Material.IsNull(), "unknown material stays null")
			require.Equal(t, "cube", r.Mesh.StableName(again.Resources))

			sh, err := again.Systems.Scripts.Get(lamp2)
			require.NoError(t, err)
			require.Equal(t, "bob.lua", sh.MustGet().Path)
			require.Equal(t, []string{"0.5"}, sh.MustGet().Args)

			require.NoError(t, again.Runner.Step(ctx, again.Runner.Interval()))
			require.Equal(t, float32(6), th2.MustGet().Position[1])
		})
	}
}

func TestBootRejectsBadFormat(t *testing.T) {
	cfg := testConfig(t, "xml")
	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestSpawnFailureLeavesNoEntities(t *testing.T) {
	cfg := testConfig(t, "binary")
	eng, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer eng.Close()

	table, err := data.ParsePrefabs([]byte(`
- name: floor
  mesh: cube
- name: sign
  parent: floor
  mesh: cube
  layer: sky
`))
	require.NoError(t, err)
	_, err = eng.SpawnPrefabs(table)
	require.ErrorContains(t, err, `prefab "sign"`)
	require.Zero(t, eng.Scene.EntityCount())
	require.Zero(t, eng.Systems.Names.Len())
	require.Zero(t, eng.Systems.Render.Len())

	_, ok := eng.Systems.Names.Find("sign")
	require.False(t, ok)
}

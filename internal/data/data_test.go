package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/engine/internal/resource"
	"github.com/stretchr/testify/require"
)

const manifestYAML = `
shaders:
  - name: unlit
    vertex: shaders/unlit.vert
    fragment: shaders/unlit.frag
    unlit: true
    params: [1, 0.5]
meshes:
  - name: cube
    path: meshes/cube.obj
    vertices: 24
textures:
  - name: brick
    path: textures/brick.png
    width: 512
    height: 256
    srgb: true
`

func TestManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, 3, m.Count())

	rm := resource.RegisterBuiltins(resource.NewManager(nil), 1)
	require.NoError(t, m.Install(rm))

	h, ok := resource.Lookup[resource.MaterialShader](rm, "unlit")
	require.True(t, ok)
	require.True(t, h.MustGet().Unlit)
	require.Equal(t, []float32{1, 0.5}, h.MustGet().Params)

	tex, ok := resource.Lookup[resource.Texture](rm, "brick")
	require.True(t, ok)
	require.Equal(t, 256, tex.MustGet().Height)

	require.ErrorIs(t, m.Install(rm), resource.ErrDuplicateName)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPrefabs(t *testing.T) {
	table, err := ParsePrefabs([]byte(`
- name: floor
  mesh: cube
  material: unlit
  scale: [10, 1, 10]
- name: lamp
  parent: floor
  position: [0, 2, 0]
  tags: [light]
  script: flicker.lua
  args: ["0.2"]
`))
	require.NoError(t, err)
	require.Equal(t, 2, table.Count())
	require.Equal(t, "floor", table.Get("lamp").Parent)
	require.Equal(t, [3]float32{0, 2, 0}, table.Get("lamp").Position)
	require.Nil(t, table.Get("none"))

	_, err = ParsePrefabs([]byte("- name: a\n  parent: b\n- name: b\n"))
	require.ErrorContains(t, err, "must be listed first")

	_, err = ParsePrefabs([]byte("- name: a\n- name: a\n"))
	require.ErrorContains(t, err, "duplicate")
}

func TestShippedAssets(t *testing.T) {
	root := filepath.Join("..", "..", "assets")
	m, err := LoadManifest(filepath.Join(root, "manifest.yaml"))
	require.NoError(t, err)
	rm := resource.RegisterBuiltins(resource.NewManager(nil), 4)
	require.NoError(t, m.Install(rm))

	table, err := LoadPrefabTable(filepath.Join(root, "prefabs.yaml"))
	require.NoError(t, err)
	for _, p := range table.All() {
		if p.Mesh != "" {
			_, ok := resource.Lookup[resource.Mesh](rm, p.Mesh)
			require.True(t, ok, "prefab %s mesh %s", p.Name, p.Mesh)
		}
		if p.Material != "" {
			_, ok := resource.Lookup[resource.MaterialShader](rm, p.Material)
			require.True(t, ok, "prefab %s material %s", p.Name, p.Material)
		}
	}
}

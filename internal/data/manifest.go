package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/engine/internal/resource"
	"gopkg.in/yaml.v3"
)

type ShaderEntry struct {
	Name     string    `yaml:"name"`
	Vertex   string    `yaml:"vertex"`
	Fragment string    `yaml:"fragment"`
	Unlit    bool      `yaml:"unlit"`
	Params   []float32 `yaml:"params"`
}

type MeshEntry struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Vertices int    `yaml:"vertices"`
}

type TextureEntry struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	SRGB   bool   `yaml:"srgb"`
}

// Manifest lists the resources a scene needs, by stable name.
type Manifest struct {
	Shaders  []ShaderEntry  `yaml:"shaders"`
	Meshes   []MeshEntry    `yaml:"meshes"`
	Textures []TextureEntry `yaml:"textures"`
}

// LoadManifest loads a resource manifest yaml file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Count returns the total number of resources listed.
func (m *Manifest) Count() int {
	return len(m.Shaders) + len(m.Meshes) + len(m.Textures)
}

// Install adds every listed resource to rm. rm must have the built-in pools
// registered. The first duplicate name aborts the install.
func (m *Manifest) Install(rm *resource.Manager) error {
	shaders, err := resource.PoolOf[resource.MaterialShader](rm)
	if err != nil {
		return err
	}
	meshes, err := resource.PoolOf[resource.Mesh](rm)
	if err != nil {
		return err
	}
	textures, err := resource.PoolOf[resource.Texture](rm)
	if err != nil {
		return err
	}

	for _, s := range m.Shaders {
		if _, err := shaders.Add(s.Name, resource.MaterialShader{
			Name:     s.Name,
			Vertex:   s.Vertex,
			Fragment: s.Fragment,
			Unlit:    s.Unlit,
			Params:   s.Params,
		}); err != nil {
			return fmt.Errorf("install shader: %w", err)
		}
	}
	for _, e := range m.Meshes {
		if _, err := meshes.Add(e.Name, resource.Mesh{Name: e.Name, Path: e.Path, Vertices: e.Vertices}); err != nil {
			return fmt.Errorf("install mesh: %w", err)
		}
	}
	for _, t := range m.Textures {
		if _, err := textures.Add(t.Name, resource.Texture{
			Name:   t.Name,
			Path:   t.Path,
			Width:  t.Width,
			Height: t.Height,
			SRGB:   t.SRGB,
		}); err != nil {
			return fmt.Errorf("install texture: %w", err)
		}
	}
	return nil
}

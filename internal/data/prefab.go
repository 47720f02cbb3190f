package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prefab describes an entity to spawn at boot. Resource fields hold stable
// names; an empty mesh means no MeshRenderer.
type Prefab struct {
	Name     string     `yaml:"name"`
	Tags     []string   `yaml:"tags"`
	Position [3]float32 `yaml:"position"`
	Scale    [3]float32 `yaml:"scale"` // zero means 1,1,1
	Parent   string     `yaml:"parent"`

	Mesh     string `yaml:"mesh"`
	Material string `yaml:"material"`
	Albedo   string `yaml:"albedo"`
	Layer    string `yaml:"layer"`

	Script string   `yaml:"script"`
	Args   []string `yaml:"args"`
}

// PrefabTable holds prefabs in file order; parents must precede children.
type PrefabTable struct {
	prefabs []Prefab
	byName  map[string]int
}

// LoadPrefabTable loads a prefab yaml file.
func LoadPrefabTable(path string) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefabs: %w", err)
	}
	return ParsePrefabs(raw)
}

func ParsePrefabs(raw []byte) (*PrefabTable, error) {
	var entries []Prefab
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse prefabs: %w", err)
	}
	t := &PrefabTable{
		prefabs: entries,
		byName:  make(map[string]int, len(entries)),
	}
	for i, p := range entries {
		if p.Name == "" {
			return nil, fmt.Errorf("prefab %d has no name", i)
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate prefab %q", p.Name)
		}
		if p.Parent != "" {
			if _, ok := t.byName[p.Parent]; !ok {
				return nil, fmt.Errorf("prefab %q: parent %q must be listed first", p.Name, p.Parent)
			}
		}
		t.byName[p.Name] = i
	}
	return t, nil
}

// Get returns the prefab with the given name, or nil if none.
func (t *PrefabTable) Get(name string) *Prefab {
	i, ok := t.byName[name]
	if !ok {
		return nil
	}
	return &t.prefabs[i]
}

// All returns every prefab in file order.
func (t *PrefabTable) All() []Prefab { return t.prefabs }

func (t *PrefabTable) Count() int { return len(t.prefabs) }

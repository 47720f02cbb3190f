package component

import (
	"fmt"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/reflection"
	"github.com/l1jgo/engine/internal/resource"
)

// Layer selects the render pass a mesh is drawn in.
type Layer uint8

const (
	LayerWorld Layer = iota
	LayerTransparent
	LayerOverlay
	LayerDebug
)

var layerNames = [...]string{"world", "transparent", "overlay", "debug"}

func (l Layer) String() string {
	if int(l) < len(layerNames) {
		return layerNames[l]
	}
	return fmt.Sprintf("Layer(%d)", l)
}

// ParseLayer maps a layer name to its Layer. Empty means LayerWorld.
func ParseLayer(s string) (Layer, error) {
	if s == "" {
		return LayerWorld, nil
	}
	for i, n := range layerNames {
		if n == s {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown render layer %q", s)
}

// MeshRenderer draws a mesh with a material at a transform. Target is
// normally the owner's own Transform but may point at another entity's,
// which is how attachments follow their anchor.
type MeshRenderer struct {
	ecs.Component

	Mesh     resource.Handle[resource.Mesh]
	Material resource.Handle[resource.MaterialShader]
	Albedo   resource.Handle[resource.Texture]
	Target   ecs.Handle[Transform]

	Layer        Layer
	CastShadows  bool
	Tint         [4]float32
	LODDistances []float32
}

func (m *MeshRenderer) Reflect(ctx reflection.Context) {
	ctx.Field("mesh", &m.Mesh)
	ctx.Field("material", &m.Material)
	ctx.Field("albedo", &m.Albedo)
	ctx.Field("target", &m.Target)
	ctx.Field("layer", &m.Layer)
	ctx.Field("cast_shadows", &m.CastShadows)
	ctx.Field("tint", &m.Tint)
	ctx.Field("lod_distances", &m.LODDistances)
}

// LOD returns the level of detail for a camera distance: the index of the
// first threshold the distance does not exceed, or len(LODDistances).
func (m *MeshRenderer) LOD(distance float32) int {
	for i, d := range m.LODDistances {
		if distance <= d {
			return i
		}
	}
	return len(m.LODDistances)
}

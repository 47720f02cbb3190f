package resource

// Resource kinds the core knows about. They are descriptors only: the GPU
// side lives in the renderer.

type MaterialShader struct {
	Name     string
	Vertex   string
	Fragment string
	Unlit    bool
	Params   []float32
}

type Mesh struct {
	Name     string
	Path     string
	Vertices int
}

type Texture struct {
	Name   string
	Path   string
	Width  int
	Height int
	SRGB   bool
}

const (
	KindMaterialShader = "material_shader"
	KindMesh           = "mesh"
	KindTexture        = "texture"
)

// RegisterBuiltins creates pools for every built-in kind and returns m.
func RegisterBuiltins(m *Manager, capacity int) *Manager {
	Register[MaterialShader](m, KindMaterialShader, capacity)
	Register[Mesh](m, KindMesh, capacity)
	Register[Texture](m, KindTexture, capacity)
	return m
}

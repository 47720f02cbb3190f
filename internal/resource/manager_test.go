package resource

import (
	"testing"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPool(t *testing.T) {
	m := RegisterBuiltins(NewManager(zaptest.NewLogger(t)), 1)

	shaders, err := PoolOf[MaterialShader](m)
	require.NoError(t, err)

	t.Run("add and lookup", func(t *testing.T) {
		h, err := shaders.Add("unlit", MaterialShader{Name: "unlit", Unlit: true})
		require.NoError(t, err)
		require.True(t, h.MustGet().Unlit)

		got, ok := shaders.Lookup("unlit")
		require.True(t, ok)
		require.True(t, got == h)

		name, ok := shaders.NameOf(h)
		require.True(t, ok)
		require.Equal(t, "unlit", name)
	})

	t.Run("pool grows", func(t *testing.T) {
		_, err := shaders.Add("lit", MaterialShader{Name: "lit"})
		require.NoError(t, err)
		require.Equal(t, 2, shaders.Len())
		require.Equal(t, []string{"lit", "unlit"}, shaders.Names())
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := shaders.Add("unlit", MaterialShader{})
		require.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("names are normalized", func(t *testing.T) {
		_, err := shaders.Add("cafe\u0301", MaterialShader{})
		require.NoError(t, err)
		_, ok := shaders.Lookup("caf\u00e9")
		require.True(t, ok)
	})

	t.Run("remove makes handles stale", func(t *testing.T) {
		h, err := shaders.Add("temp", MaterialShader{})
		require.NoError(t, err)
		require.True(t, shaders.Remove("temp"))
		_, err = h.Get()
		require.ErrorIs(t, err, ecs.ErrStaleHandle)
		require.Equal(t, "", h.StableName(m))
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := PoolOf[int](m)
		require.ErrorIs(t, err, ErrUnknownKind)
	})
}

func TestHandleNames(t *testing.T) {
	m := RegisterBuiltins(NewManager(nil), 4)
	shaders, _ := PoolOf[MaterialShader](m)
	h, err := shaders.Add("unlit", MaterialShader{Name: "unlit"})
	require.NoError(t, err)

	require.Equal(t, "unlit", h.StableName(m))

	var back Handle[MaterialShader]
	require.True(t, back.BindName(m, "unlit"))
	require.True(t, back == h)

	require.False(t, back.BindName(m, "missing"))
	require.True(t, back.IsNull())

	var null Handle[MaterialShader]
	require.Equal(t, "", null.StableName(m))
	require.Equal(t, 3, len(m.Kinds()))
	require.Equal(t, 1, m.Count())
}

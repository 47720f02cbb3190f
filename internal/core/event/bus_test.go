package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type spawned struct{ ID int }
type despawned struct{ ID int }

func TestBusDoubleBuffer(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(ev spawned) { got = append(got, "spawn", string(rune('0'+ev.ID))) })
	Subscribe(b, func(ev despawned) { got = append(got, "despawn", string(rune('0'+ev.ID))) })

	Emit(b, despawned{ID: 1})
	Emit(b, spawned{ID: 2})
	Emit(b, despawned{ID: 3})
	require.Equal(t, 3, b.Pending())

	// Nothing is visible until the buffers swap.
	b.DispatchAll()
	require.Empty(t, got)

	b.SwapBuffers()
	require.Equal(t, 0, b.Pending())
	b.DispatchAll()
	require.Equal(t, []string{"despawn", "1", "despawn", "3", "spawn", "2"}, got)

	// Events emitted while dispatching wait for the next swap.
	got = nil
	Subscribe(b, func(ev spawned) { Emit(b, despawned{ID: ev.ID}) })
	Emit(b, spawned{ID: 4})
	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, []string{"spawn", "4"}, got)
	require.Equal(t, 1, b.Pending())

	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, []string{"spawn", "4", "despawn", "4"}, got)
}

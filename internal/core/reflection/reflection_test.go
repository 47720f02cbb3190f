package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type light struct {
	Name      string
	Intensity float32
	Range     uint16
	Color     [3]float32
	On        bool
}

func (l *light) Reflect(ctx Context) {
	ctx.Field("name", &l.Name)
	ctx.Field("intensity", &l.Intensity)
	ctx.Field("range", &l.Range)
	ctx.Field("color", &l.Color)
	if ctx.Mode() != ModeInspect {
		ctx.Field("on", &l.On)
	}
}

func TestInspector(t *testing.T) {
	l := &light{Name: "sun", Intensity: 2}
	fields := Fields(l)
	require.Len(t, fields, 4)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	require.Equal(t, []string{"name", "intensity", "range", "color"}, names)

	require.Equal(t, reflect.TypeFor[[3]float32](), fields[3].Type)
	require.Equal(t, uintptr(12), fields[3].Size)
	require.Equal(t, "sun", fields[0].Value())

	in := NewInspector()
	l.Reflect(in)
	f, ok := in.Lookup("intensity")
	require.True(t, ok)
	*(f.Ptr.(*float32)) = 5
	require.Equal(t, float32(5), l.Intensity)

	_, ok = in.Lookup("on")
	require.False(t, ok)

	in.Field("bad", light{})
	in.Field("nil", (*int)(nil))
	require.Len(t, in.Fields(), 4)
}

func TestSetter(t *testing.T) {
	l := &light{Name: "lamp", Range: 3}
	s := NewSetter(map[string]any{
		"color":     [3]float32{1, 0.5, 0},
		"intensity": 1.5,  // float64 converts to float32
		"range":     7,    // int converts to uint16
		"name":      nil,  // zeroes the field
		"missing":   true, // never registered
	})
	l.Reflect(s)
	require.NoError(t, s.Err())
	require.Equal(t, ModeRead, s.Mode())
	require.Equal(t, &light{Intensity: 1.5, Range: 7, Color: [3]float32{1, 0.5, 0}}, l)
	require.Equal(t, []string{"missing"}, s.Unapplied())

	t.Run("string and number do not mix", func(t *testing.T) {
		s := NewSetter(map[string]any{"range": "7"})
		l.Reflect(s)
		require.Error(t, s.Err())
		require.Equal(t, uint16(7), l.Range)
	})
}

func TestSetField(t *testing.T) {
	l := &light{}
	require.NoError(t, SetField(l, "on", true))
	require.True(t, l.On)
	require.NoError(t, SetField(l, "name", "torch"))
	require.Equal(t, "torch", l.Name)

	require.Error(t, SetField(l, "glow", 1))
	require.Error(t, SetField(l, "on", "yes"))
}

func TestModeString(t *testing.T) {
	require.Equal(t, "write", ModeWrite.String())
	require.Equal(t, "read", ModeRead.String())
	require.Equal(t, "inspect", ModeInspect.String())
	require.Equal(t, "unknown", Mode(9).String())
}

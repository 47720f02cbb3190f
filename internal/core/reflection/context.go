// Package reflection is the field-registration protocol components use to
// expose their persisted state. A component describes its fields once, in a
// Reflect method, and the Context it is handed decides whether that call
// writes the field out, reads it back in, or only records it.
package reflection

import (
	"reflect"
)

// Mode tells a Reflect body what the context will do with each field.
type Mode uint8

const (
	ModeWrite   Mode = iota // component -> archive
	ModeRead                // archive -> component
	ModeInspect             // metadata only (editor, tooling)
)

func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "write"
	case ModeRead:
		return "read"
	case ModeInspect:
		return "inspect"
	}
	return "unknown"
}

// Context receives one Field call per piece of persisted state. ptr must be
// a non-nil pointer to the field.
type Context interface {
	Mode() Mode
	Field(name string, ptr any)
}

// Reflector is implemented by component types that describe their own fields.
type Reflector interface {
	Reflect(ctx Context)
}

// Field is an untyped descriptor of one piece of component state. Fields are
// rebuilt every time a Reflect body runs and are never persisted.
type Field struct {
	Name string
	Type reflect.Type
	Ptr  any
	Size uintptr
}

// Value returns the current value the field points at.
func (f Field) Value() any {
	return reflect.ValueOf(f.Ptr).Elem().Interface()
}

func describe(name string, ptr any) (Field, bool) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return Field{}, false
	}
	t := rv.Type().Elem()
	return Field{Name: name, Type: t, Ptr: ptr, Size: t.Size()}, true
}

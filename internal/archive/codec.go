package archive

import (
	"fmt"
	"reflect"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/resource"
	"go.uber.org/zap"
)

var entityType = reflect.TypeFor[ecs.Entity]()

// Env carries what the codecs need to turn references into portable names
// and back: the scene for entity and component references, the resource
// manager for resource names.
type Env struct {
	Scene     *ecs.Scene
	Resources *resource.Manager
	Log       *zap.Logger
}

func (env Env) logger() *zap.Logger {
	if env.Log == nil {
		return zap.NewNop()
	}
	return env.Log
}

// Kind classifies a field for the archive backends.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBlob // fixed arrays and structs of scalars
	KindSlice
	KindEntity
	KindComponentRef
	KindResourceRef
)

var kindNames = [...]string{"invalid", "bool", "int", "uint", "float", "string", "blob", "slice", "entity", "component", "resource"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// KindOf classifies the value ptr points at.
func KindOf(ptr any) Kind {
	switch ptr.(type) {
	case resource.Ref:
		return KindResourceRef
	case ecs.ComponentRef:
		return KindComponentRef
	case *ecs.Entity:
		return KindEntity
	}
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return KindInvalid
	}
	return kindOfType(rv.Type().Elem())
}

func kindOfType(t reflect.Type) Kind {
	if t == entityType {
		return KindEntity
	}
	pt := reflect.PointerTo(t)
	switch {
	case pt.Implements(resourceRefType):
		return KindResourceRef
	case pt.Implements(componentRefType):
		return KindComponentRef
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return KindUint
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Slice:
		if t.Elem().Size() == 0 || kindOfType(t.Elem()) == KindInvalid {
			return KindInvalid
		}
		return KindSlice
	case reflect.Array, reflect.Struct:
		if !scalarAggregate(t) {
			return KindInvalid
		}
		return KindBlob
	}
	return KindInvalid
}

var (
	resourceRefType  = reflect.TypeFor[resource.Ref]()
	componentRefType = reflect.TypeFor[ecs.ComponentRef]()
)

// scalarAggregate reports whether t is an array or struct built only from
// fixed-size scalars, which the archives treat as one opaque blob.
func scalarAggregate(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Array:
		return scalarAggregate(t.Elem())
	case reflect.Struct:
		if t == entityType {
			return false
		}
		pt := reflect.PointerTo(t)
		if pt.Implements(resourceRefType) || pt.Implements(componentRefType) {
			return false
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || !scalarAggregate(f.Type) {
				return false
			}
		}
		return true
	}
	return false
}

// encode writes the value rv (addressable) to w.
func encode(w *Archive, rv reflect.Value, env Env) error {
	if rv.CanAddr() {
		switch ref := rv.Addr().Interface().(type) {
		case resource.Ref:
			w.WriteString(ref.StableName(env.Resources))
			return nil
		case ecs.ComponentRef:
			system, id := ref.RefTarget(env.Scene)
			w.WriteString(system)
			w.WriteU32(id)
			return nil
		case *ecs.Entity:
			w.WriteU32(ref.ID())
			return nil
		}
	}
	switch rv.Kind() {
	case reflect.Bool:
		w.WriteBool(rv.Bool())
	case reflect.Int8:
		w.WriteU8(uint8(rv.Int()))
	case reflect.Int16:
		w.WriteU16(uint16(rv.Int()))
	case reflect.Int32:
		w.WriteU32(uint32(rv.Int()))
	case reflect.Int, reflect.Int64:
		w.WriteU64(uint64(rv.Int()))
	case reflect.Uint8:
		w.WriteU8(uint8(rv.Uint()))
	case reflect.Uint16:
		w.WriteU16(uint16(rv.Uint()))
	case reflect.Uint32:
		w.WriteU32(uint32(rv.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		w.WriteU64(rv.Uint())
	case reflect.Float32:
		w.WriteF32(float32(rv.Float()))
	case reflect.Float64:
		w.WriteF64(rv.Float())
	case reflect.String:
		w.WriteString(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Size() == 0 {
			return fmt.Errorf("%s: zero-size elements: %w", rv.Type(), ErrUnsupportedField)
		}
		w.WriteU32(uint32(rv.Len()))
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			w.WriteBytes(rv.Bytes())
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			if err := encode(w, rv.Index(i), env); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := encode(w, rv.Index(i), env); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := encode(w, rv.Field(i), env); err != nil {
				return fmt.Errorf(".%s: %w", t.Field(i).Name, err)
			}
		}
	default:
		return fmt.Errorf("%s: %w", rv.Type(), ErrUnsupportedField)
	}
	return nil
}

// decode reads into rv (addressable, settable) from r. Truncation panics.
func decode(r *Archive, rv reflect.Value, env Env) error {
	switch ref := rv.Addr().Interface().(type) {
	case resource.Ref:
		name := r.ReadString()
		if !ref.BindName(env.Resources, name) && name != "" {
			env.logger().Debug("resource name not found, leaving handle null", zap.String("name", name))
		}
		return nil
	case ecs.ComponentRef:
		system := r.ReadString()
		id := r.ReadU32()
		if err := ref.ResolveRef(env.Scene, system, id); err != nil {
			env.logger().Debug("component reference unresolved", zap.String("system", system), zap.Uint32("entity", id), zap.Error(err))
		}
		return nil
	case *ecs.Entity:
		*ref = env.Scene.Entity(r.ReadU32())
		return nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		rv.SetBool(r.ReadBool())
	case reflect.Int8:
		rv.SetInt(int64(int8(r.ReadU8())))
	case reflect.Int16:
		rv.SetInt(int64(int16(r.ReadU16())))
	case reflect.Int32:
		rv.SetInt(int64(int32(r.ReadU32())))
	case reflect.Int, reflect.Int64:
		rv.SetInt(int64(r.ReadU64()))
	case reflect.Uint8:
		rv.SetUint(uint64(r.ReadU8()))
	case reflect.Uint16:
		rv.SetUint(uint64(r.ReadU16()))
	case reflect.Uint32:
		rv.SetUint(uint64(r.ReadU32()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		rv.SetUint(r.ReadU64())
	case reflect.Float32:
		rv.SetFloat(float64(r.ReadF32()))
	case reflect.Float64:
		rv.SetFloat(r.ReadF64())
	case reflect.String:
		rv.SetString(r.ReadString())
	case reflect.Slice:
		if rv.Type().Elem().Size() == 0 {
			return fmt.Errorf("%s: zero-size elements: %w", rv.Type(), ErrUnsupportedField)
		}
		n := int(r.ReadU32())
		if n == 0 {
			// empty and nil slices share an encoding; both load as nil
			rv.SetZero()
			return nil
		}
		if n > r.Remaining() {
			// every element takes at least one byte
			panic(fmt.Errorf("slice of %d elements with %d bytes left: %w", n, r.Remaining(), ErrArchiveTruncated))
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := r.ReadBytes(n)
			rv.SetBytes(append([]byte(nil), b...))
			return nil
		}
		s := reflect.MakeSlice(rv.Type(), n, n)
		for i := 0; i < n; i++ {
			if err := decode(r, s.Index(i), env); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		rv.Set(s)
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := decode(r, rv.Index(i), env); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := decode(r, rv.Field(i), env); err != nil {
				return fmt.Errorf(".%s: %w", t.Field(i).Name, err)
			}
		}
	default:
		return fmt.Errorf("%s: %w", rv.Type(), ErrUnsupportedField)
	}
	return nil
}

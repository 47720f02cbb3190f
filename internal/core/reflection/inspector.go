package reflection

import (
	"fmt"
	"reflect"
)

// Inspector records every field a Reflect body registers, in call order.
type Inspector struct {
	fields []Field
}

func NewInspector() *Inspector {
	return &Inspector{fields: make([]Field, 0, 8)}
}

func (i *Inspector) Mode() Mode { return ModeInspect }

func (i *Inspector) Field(name string, ptr any) {
	if f, ok := describe(name, ptr); ok {
		i.fields = append(i.fields, f)
	}
}

func (i *Inspector) Fields() []Field { return i.fields }

// Lookup returns the recorded field with the given name.
func (i *Inspector) Lookup(name string) (Field, bool) {
	for _, f := range i.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Fields runs r against a fresh Inspector.
func Fields(r Reflector) []Field {
	in := NewInspector()
	r.Reflect(in)
	return in.Fields()
}

// Setter assigns named values to the fields a Reflect body registers. Names
// the body never registers are left unapplied; fields without a value keep
// what they hold.
type Setter struct {
	values  map[string]any
	applied map[string]bool
	err     error
}

func NewSetter(values map[string]any) *Setter {
	return &Setter{values: values, applied: make(map[string]bool, len(values))}
}

// Mode is ModeRead: a Setter constructs field state from outside input.
func (s *Setter) Mode() Mode { return ModeRead }

func (s *Setter) Field(name string, ptr any) {
	v, ok := s.values[name]
	if !ok {
		return
	}
	dst := reflect.ValueOf(ptr)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return
	}
	dst = dst.Elem()
	src := reflect.ValueOf(v)
	switch {
	case !src.IsValid():
		dst.SetZero()
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case src.Type().ConvertibleTo(dst.Type()) && convertible(src.Kind(), dst.Kind()):
		dst.Set(src.Convert(dst.Type()))
	default:
		if s.err == nil {
			s.err = fmt.Errorf("field %q: cannot assign %s to %s", name, src.Type(), dst.Type())
		}
		return
	}
	s.applied[name] = true
}

// Unapplied lists the names that no registered field consumed.
func (s *Setter) Unapplied() []string {
	var out []string
	for name := range s.values {
		if !s.applied[name] {
			out = append(out, name)
		}
	}
	return out
}

func (s *Setter) Err() error { return s.err }

// SetField assigns value to the field name of r.
func SetField(r Reflector, name string, value any) error {
	s := NewSetter(map[string]any{name: value})
	r.Reflect(s)
	if s.err != nil {
		return s.err
	}
	if !s.applied[name] {
		return fmt.Errorf("field %q not registered", name)
	}
	return nil
}

// convertible rejects string<->integer conversions, which reflect allows but
// which never mean what an editor intends.
func convertible(src, dst reflect.Kind) bool {
	if (src == reflect.String) != (dst == reflect.String) {
		return false
	}
	return true
}

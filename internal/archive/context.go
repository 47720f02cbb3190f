package archive

import (
	"fmt"
	"reflect"

	"github.com/l1jgo/engine/internal/core/reflection"
)

// WriteContext encodes every registered field into a write archive, in
// registration order.
type WriteContext struct {
	ar  *Archive
	env Env
	err error
}

func NewWriteContext(ar *Archive, env Env) *WriteContext {
	return &WriteContext{ar: ar, env: env}
}

func (c *WriteContext) Mode() reflection.Mode { return reflection.ModeWrite }

func (c *WriteContext) Field(name string, ptr any) {
	if c.err != nil {
		return
	}
	rv, err := fieldValue(name, ptr)
	if err != nil {
		c.err = err
		return
	}
	if err := encode(c.ar, rv, c.env); err != nil {
		c.err = fmt.Errorf("field %q: %w", name, err)
	}
}

// Err returns the first field that could not be encoded.
func (c *WriteContext) Err() error { return c.err }

// ReadContext decodes fields from a read archive in registration order. The
// reader and the writer must run the same Reflect body.
type ReadContext struct {
	ar  *Archive
	env Env
	err error
}

func NewReadContext(ar *Archive, env Env) *ReadContext {
	return &ReadContext{ar: ar, env: env}
}

func (c *ReadContext) Mode() reflection.Mode { return reflection.ModeRead }

func (c *ReadContext) Field(name string, ptr any) {
	if c.err != nil {
		return
	}
	rv, err := fieldValue(name, ptr)
	if err != nil {
		c.err = err
		return
	}
	if err := decode(c.ar, rv, c.env); err != nil {
		c.err = fmt.Errorf("field %q: %w", name, err)
	}
}

func (c *ReadContext) Err() error { return c.err }

func fieldValue(name string, ptr any) (reflect.Value, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("field %q: want non-nil pointer, got %T: %w", name, ptr, ErrUnsupportedField)
	}
	return rv.Elem(), nil
}

// Marshal writes the fields r registers to a fresh archive.
func Marshal(r reflection.Reflector, env Env) ([]byte, error) {
	ar := NewWriter(256)
	ctx := NewWriteContext(ar, env)
	r.Reflect(ctx)
	if ctx.err != nil {
		return nil, ctx.err
	}
	return ar.Bytes(), nil
}

// Unmarshal reads data into the fields r registers.
func Unmarshal(data []byte, r reflection.Reflector, env Env) error {
	ctx := NewReadContext(NewReader(data), env)
	r.Reflect(ctx)
	return ctx.err
}

package archive

import (
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/reflection"
	"github.com/l1jgo/engine/internal/resource"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Document is the human-editable form of a scene snapshot.
type Document struct {
	Scene    string           `yaml:"scene"`
	Entities []EntityDocument `yaml:"entities"`
	Free     []uint32         `yaml:"free,omitempty"`
}

// EntityDocument maps system name to field name to field value.
type EntityDocument struct {
	ID         uint32                          `yaml:"id"`
	Components map[string]map[string]FieldNode `yaml:"components,omitempty"`
}

// FieldNode is one field. Scalars, enums and fixed aggregates of scalars
// are hex blobs of their binary encoding; strings are kept as text so they
// stay editable. Handles hold either null_handle, a resource name, or a
// system and owner entity id.
type FieldNode struct {
	Type       string               `yaml:"type"`
	Data       string               `yaml:"data,omitempty"`
	Text       *string              `yaml:"text,omitempty"`
	Items      []FieldNode          `yaml:"items,omitempty"`
	Fields     map[string]FieldNode `yaml:"fields,omitempty"`
	NullHandle bool                 `yaml:"null_handle,omitempty"`
	Name       string               `yaml:"name,omitempty"`
	System     string               `yaml:"system,omitempty"`
	ID         uint32               `yaml:"id,omitempty"`
}

// MarshalDocument renders doc as YAML.
func MarshalDocument(doc *Document) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal scene document: %w", err)
	}
	return out, nil
}

// UnmarshalDocument parses a YAML scene document.
func UnmarshalDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scene document: %w", err)
	}
	return &doc, nil
}

// StructuredWriter records each registered field as a FieldNode.
type StructuredWriter struct {
	env    Env
	fields map[string]FieldNode
	err    error
}

func NewStructuredWriter(env Env) *StructuredWriter {
	return &StructuredWriter{env: env, fields: make(map[string]FieldNode)}
}

func (w *StructuredWriter) Mode() reflection.Mode { return reflection.ModeWrite }

func (w *StructuredWriter) Field(name string, ptr any) {
	if w.err != nil {
		return
	}
	rv, err := fieldValue(name, ptr)
	if err != nil {
		w.err = err
		return
	}
	node, err := toNode(rv, w.env)
	if err != nil {
		w.err = fmt.Errorf("field %q: %w", name, err)
		return
	}
	w.fields[name] = node
}

func (w *StructuredWriter) Fields() map[string]FieldNode { return w.fields }
func (w *StructuredWriter) Err() error                   { return w.err }

// StructuredReader assigns fields from a FieldNode map. A field the map
// lacks is skipped and keeps its current value; the skip is logged at debug
// level and listed by Missing.
type StructuredReader struct {
	env     Env
	fields  map[string]FieldNode
	missing []string
	err     error
}

func NewStructuredReader(fields map[string]FieldNode, env Env) *StructuredReader {
	return &StructuredReader{env: env, fields: fields}
}

func (r *StructuredReader) Mode() reflection.Mode { return reflection.ModeRead }

func (r *StructuredReader) Field(name string, ptr any) {
	if r.err != nil {
		return
	}
	node, ok := r.fields[name]
	if !ok {
		r.missing = append(r.missing, name)
		r.env.logger().Debug("field missing from document, keeping default", zap.String("field", name))
		return
	}
	rv, err := fieldValue(name, ptr)
	if err != nil {
		r.err = err
		return
	}
	if err := fromNode(node, rv, r.env); err != nil {
		r.err = fmt.Errorf("field %q: %w", name, err)
	}
}

func (r *StructuredReader) Missing() []string { return r.missing }
func (r *StructuredReader) Err() error        { return r.err }

func toNode(rv reflect.Value, env Env) (FieldNode, error) {
	t := rv.Type()
	node := FieldNode{Type: t.String()}

	switch ref := rv.Addr().Interface().(type) {
	case resource.Ref:
		if node.Name = ref.StableName(env.Resources); node.Name == "" {
			node.NullHandle = true
		}
		return node, nil
	case ecs.ComponentRef:
		if node.System, node.ID = ref.RefTarget(env.Scene); node.ID == 0 {
			node.System, node.NullHandle = "", true
		}
		return node, nil
	case *ecs.Entity:
		if node.ID = ref.ID(); node.ID == 0 {
			node.NullHandle = true
		}
		return node, nil
	}

	switch t.Kind() {
	case reflect.String:
		s := rv.String()
		node.Text = &s
	case reflect.Slice:
		if t.Elem().Size() == 0 {
			return node, fmt.Errorf("%s: zero-size elements: %w", t, ErrUnsupportedField)
		}
		if t.Elem().Kind() == reflect.Uint8 {
			node.Data = hex.EncodeToString(rv.Bytes())
			return node, nil
		}
		for i := 0; i < rv.Len(); i++ {
			item, err := toNode(rv.Index(i), env)
			if err != nil {
				return node, fmt.Errorf("[%d]: %w", i, err)
			}
			node.Items = append(node.Items, item)
		}
	case reflect.Array, reflect.Struct:
		if scalarAggregate(t) {
			return blobNode(node, rv, env)
		}
		if t.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				item, err := toNode(rv.Index(i), env)
				if err != nil {
					return node, fmt.Errorf("[%d]: %w", i, err)
				}
				node.Items = append(node.Items, item)
			}
			return node, nil
		}
		node.Fields = make(map[string]FieldNode, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			sub, err := toNode(rv.Field(i), env)
			if err != nil {
				return node, fmt.Errorf(".%s: %w", f.Name, err)
			}
			node.Fields[f.Name] = sub
		}
	default:
		if kindOfType(t) == KindInvalid {
			return node, fmt.Errorf("%s: %w", t, ErrUnsupportedField)
		}
		return blobNode(node, rv, env)
	}
	return node, nil
}

func blobNode(node FieldNode, rv reflect.Value, env Env) (FieldNode, error) {
	w := NewWriter(16)
	if err := encode(w, rv, env); err != nil {
		return node, err
	}
	node.Data = hex.EncodeToString(w.Bytes())
	return node, nil
}

func fromNode(node FieldNode, rv reflect.Value, env Env) error {
	t := rv.Type()
	if node.Type != "" && node.Type != t.String() {
		return fmt.Errorf("document has %s, field is %s: %w", node.Type, t, ErrUnsupportedField)
	}

	switch ref := rv.Addr().Interface().(type) {
	case resource.Ref:
		if !ref.BindName(env.Resources, node.Name) && node.Name != "" {
			env.logger().Debug("resource name not found, leaving handle null", zap.String("name", node.Name))
		}
		return nil
	case ecs.ComponentRef:
		if node.NullHandle {
			return ref.ResolveRef(env.Scene, "", 0)
		}
		if err := ref.ResolveRef(env.Scene, node.System, node.ID); err != nil {
			env.logger().Debug("component reference unresolved", zap.String("system", node.System), zap.Uint32("entity", node.ID), zap.Error(err))
		}
		return nil
	case *ecs.Entity:
		*ref = env.Scene.Entity(node.ID)
		return nil
	}

	switch t.Kind() {
	case reflect.String:
		if node.Text != nil {
			rv.SetString(*node.Text)
		} else {
			rv.SetString("")
		}
	case reflect.Slice:
		if t.Elem().Size() == 0 {
			return fmt.Errorf("%s: zero-size elements: %w", t, ErrUnsupportedField)
		}
		if t.Elem().Kind() == reflect.Uint8 {
			b, err := hex.DecodeString(node.Data)
			if err != nil {
				return fmt.Errorf("decode hex: %w", err)
			}
			if len(b) == 0 {
				rv.SetZero()
				return nil
			}
			rv.SetBytes(b)
			return nil
		}
		if len(node.Items) == 0 {
			rv.SetZero()
			return nil
		}
		s := reflect.MakeSlice(t, len(node.Items), len(node.Items))
		for i, item := range node.Items {
			if err := fromNode(item, s.Index(i), env); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		rv.Set(s)
	case reflect.Array, reflect.Struct:
		if scalarAggregate(t) {
			return fromBlob(node, rv, env)
		}
		if t.Kind() == reflect.Array {
			for i := 0; i < min(rv.Len(), len(node.Items)); i++ {
				if err := fromNode(node.Items[i], rv.Index(i), env); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			return nil
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			sub, ok := node.Fields[f.Name]
			if !ok {
				env.logger().Debug("struct field missing from document, keeping default", zap.String("field", f.Name))
				continue
			}
			if err := fromNode(sub, rv.Field(i), env); err != nil {
				return fmt.Errorf(".%s: %w", f.Name, err)
			}
		}
	default:
		return fromBlob(node, rv, env)
	}
	return nil
}

// fromBlob decodes a hex blob. A short blob in a hand-edited document is
// reported as ErrArchiveTruncated rather than panicking.
func fromBlob(node FieldNode, rv reflect.Value, env Env) (err error) {
	b, err := hex.DecodeString(node.Data)
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			perr, ok := p.(error)
			if !ok || !errors.Is(perr, ErrArchiveTruncated) {
				panic(p)
			}
			err = perr
		}
	}()
	return decode(NewReader(b), rv, env)
}

// Export builds the structured form of the scene.
func (a *ComponentArchive) Export() (*Document, error) {
	scene := a.env.Scene
	byID := make(map[uint32]*EntityDocument)
	doc := &Document{Scene: scene.Name(), Free: scene.FreeIDs()}
	for _, e := range scene.Entities() {
		doc.Entities = append(doc.Entities, EntityDocument{ID: e.ID()})
	}
	for i := range doc.Entities {
		byID[doc.Entities[i].ID] = &doc.Entities[i]
	}

	for _, sys := range scene.Systems() {
		for _, e := range sys.Entities() {
			ed, ok := byID[e.ID()]
			if !ok {
				continue
			}
			w := NewStructuredWriter(a.env)
			if err := sys.SerializeEntity(e, w); err != nil {
				return nil, fmt.Errorf("export %s on %s: %w", sys.Name(), e, err)
			}
			if w.Err() != nil {
				return nil, fmt.Errorf("export %s on %s: %w", sys.Name(), e, w.Err())
			}
			if ed.Components == nil {
				ed.Components = make(map[string]map[string]FieldNode)
			}
			ed.Components[sys.Name()] = w.Fields()
		}
	}
	return doc, nil
}

// Import restores a structured document into the scene, in the same two
// phases as Load, and rolls back the same way on error.
func (a *ComponentArchive) Import(doc *Document) (err error) {
	scene := a.env.Scene
	tx := a.begin()
	defer tx.settle(&err)

	ids := make([]uint32, 0, len(doc.Entities))
	docs := make(map[uint32]EntityDocument, len(doc.Entities))
	for _, ed := range doc.Entities {
		ids = append(ids, ed.ID)
		docs[ed.ID] = ed
	}
	slices.Sort(ids)

	known := make(map[string]bool)
	for _, sys := range scene.Systems() {
		known[sys.Name()] = true
	}

	for _, id := range ids {
		e, err := tx.claim(id)
		if err != nil {
			return err
		}
		for name := range docs[id].Components {
			if !known[name] {
				a.env.Log.Warn("skipping component of unknown system",
					zap.String("system", name),
					zap.Uint32("entity", id),
					zap.Error(ErrUnknownSystem),
				)
			}
		}
		for _, sys := range scene.Systems() {
			if _, ok := docs[id].Components[sys.Name()]; !ok {
				continue
			}
			if err := tx.attach(sys, e); err != nil {
				return fmt.Errorf("import %s on %s: %w", sys.Name(), e, err)
			}
		}
	}

	for _, id := range ids {
		e := scene.Entity(id)
		for _, sys := range scene.Systems() {
			fields, ok := docs[id].Components[sys.Name()]
			if !ok {
				continue
			}
			r := NewStructuredReader(fields, a.env)
			if err := sys.SerializeEntity(e, r); err != nil {
				return fmt.Errorf("import %s on %s: %w", sys.Name(), e, err)
			}
			if r.Err() != nil {
				return fmt.Errorf("import %s on %s: %w", sys.Name(), e, r.Err())
			}
		}
	}

	scene.RestoreFreeIDs(doc.Free)

	a.env.Log.Debug("scene imported", zap.String("scene", scene.Name()), zap.Int("entities", len(ids)))
	return nil
}

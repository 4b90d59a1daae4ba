package ecs

import (
	"reflect"
	"strings"
)

// ComponentRegistry tracks which ComponentTypes are known to a World,
// keyed both by the Go type used to register them (for duplicate
// detection) and by pointer identity (for the "is this type registered on
// this world" check in Entity.AddComponent).
type ComponentRegistry struct {
	byGoType map[reflect.Type]*ComponentType
	byPtr    map[*ComponentType]struct{}
}

func newComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byGoType: make(map[reflect.Type]*ComponentType),
		byPtr:    make(map[*ComponentType]struct{}),
	}
}

func (r *ComponentRegistry) add(t reflect.Type, c *ComponentType) {
	r.byGoType[t] = c
	r.byPtr[c] = struct{}{}
}

// lookup returns c if it is registered on this registry, else nil.
func (r *ComponentRegistry) lookup(c *ComponentType) *ComponentType {
	if _, ok := r.byPtr[c]; ok {
		return c
	}
	return nil
}

// fieldSchema is one entry of a ComponentType's ordered field->kind mapping.
type fieldSchema struct {
	name  string
	kind  Kind
	index int
}

// componentPool is the type-erased side of Pool[T], letting the entity
// registry acquire/release component instances without knowing their
// concrete Go type.
type componentPool interface {
	acquireAny() any
	releaseAny(item any)
}

type typedComponentPool[T any] struct {
	pool *Pool[T]
}

func (p *typedComponentPool[T]) acquireAny() any  { return p.pool.Acquire() }
func (p *typedComponentPool[T]) releaseAny(v any) { p.pool.Release(v.(*T)) }

// ComponentType is a registered, named component schema: an ordered
// field->kind mapping derived from a Go struct via reflection, plus the
// isSystemState/isTag flags.
type ComponentType struct {
	Name          string
	goType        reflect.Type
	schema        []fieldSchema
	isSystemState bool
	isTag         bool
	pool          componentPool
	newFunc       func() any
}

// ComponentOption configures RegisterComponent.
type ComponentOption func(*componentOptions)

type componentOptions struct {
	name          string
	systemState   bool
	tag           bool
	pooled        bool
	kindOverrides map[string]string
}

// WithName overrides the component's registered name (defaults to the Go
// type name).
func WithName(name string) ComponentOption {
	return func(o *componentOptions) { o.name = name }
}

// WithSystemState marks the component isSystemState: entities carrying it
// survive normal disposal until it is explicitly removed.
func WithSystemState() ComponentOption {
	return func(o *componentOptions) { o.systemState = true }
}

// AsTag marks the component isTag: its schema is forced empty and presence
// alone is the datum.
func AsTag() ComponentOption {
	return func(o *componentOptions) { o.tag = true }
}

// WithoutPool disables pooling for this component type; every instance is
// constructed fresh with new(T) instead of recycled.
func WithoutPool() ComponentOption {
	return func(o *componentOptions) { o.pooled = false }
}

// WithFieldKind overrides the inferred Kind for a single schema field by
// the world's registered kind id (see WithKind).
func WithFieldKind(field, kindID string) ComponentOption {
	return func(o *componentOptions) {
		if o.kindOverrides == nil {
			o.kindOverrides = make(map[string]string)
		}
		o.kindOverrides[field] = kindID
	}
}

func buildSchema(t reflect.Type, overrides map[string]string, kinds map[string]Kind) []fieldSchema {
	schema := make([]fieldSchema, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		kind := kindForGoKind(f.Type.Kind())
		if tag, ok := f.Tag.Lookup("ecs"); ok {
			for _, part := range strings.Split(tag, ",") {
				if name, value, found := strings.Cut(part, "="); found && name == "kind" {
					if k, ok := kinds[value]; ok {
						kind = k
					}
				}
			}
		}
		if id, ok := overrides[f.Name]; ok {
			if k, ok := kinds[id]; ok {
				kind = k
			}
		}
		schema = append(schema, fieldSchema{name: f.Name, kind: kind, index: i})
	}
	return schema
}

// registerComponentType builds a ComponentType for T using the world's kind
// registry, applying opts. Used by the generic RegisterComponent.
func registerComponentType[T any](w *World, opts ...ComponentOption) *ComponentType {
	o := componentOptions{pooled: true}
	var zero T
	goType := reflect.TypeOf(zero)
	o.name = goType.Name()
	for _, opt := range opts {
		opt(&o)
	}

	ct := &ComponentType{
		Name:          o.name,
		goType:        goType,
		isSystemState: o.systemState,
		isTag:         o.tag,
	}
	if o.tag {
		ct.schema = nil
	} else {
		ct.schema = buildSchema(goType, o.kindOverrides, w.kinds)
	}
	ct.newFunc = func() any {
		v := new(T)
		return v
	}
	if o.pooled {
		ct.pool = &typedComponentPool[T]{pool: NewPool[T](zero)}
	}
	return ct
}

// newInstance allocates a component instance, from the pool when available.
func (c *ComponentType) newInstance() any {
	if c.pool != nil {
		return c.pool.acquireAny()
	}
	return c.newFunc()
}

func (c *ComponentType) releaseInstance(v any) {
	if c.pool != nil {
		c.pool.releaseAny(v)
	}
}

// fieldValue returns the reflect.Value for the named schema field on a pointer
// to a component instance.
func fieldValue(instance any, name string) reflect.Value {
	v := reflect.ValueOf(instance)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v.FieldByName(name)
}

// applyDefaults sets each schema field whose Kind declares a non-nil
// Default onto a freshly allocated instance. Fields without a kind default
// keep Go's zero value, which already matches the schema default for the
// fixed primitive kinds.
func (c *ComponentType) applyDefaults(instance any) {
	for _, fs := range c.schema {
		if fs.kind.Default == nil {
			continue
		}
		dst := fieldValue(instance, fs.name)
		if !dst.CanSet() {
			continue
		}
		dst.Set(reflect.ValueOf(fs.kind.Default()).Convert(dst.Type()))
	}
}

// copyInto overlays every schema field of src onto dst using each field's
// Kind.Copy semantics; used by Entity.Copy.
func (c *ComponentType) copyInto(src, dst any) {
	for _, fs := range c.schema {
		s := fieldValue(src, fs.name)
		d := fieldValue(dst, fs.name)
		if !d.CanSet() {
			continue
		}
		fs.kind.Copy(s, d)
	}
}

// overlayProps copies any schema field present in props onto instance using
// that field's Kind.Copy semantics.
func (c *ComponentType) overlayProps(instance any, props map[string]any) {
	if props == nil {
		return
	}
	for _, fs := range c.schema {
		val, ok := props[fs.name]
		if !ok {
			continue
		}
		dst := fieldValue(instance, fs.name)
		if !dst.CanSet() {
			continue
		}
		src := reflect.ValueOf(val)
		if !src.IsValid() {
			continue
		}
		fs.kind.Copy(src, dst)
	}
}

// clone produces an independent copy of instance following each field's
// Kind semantics.
func (c *ComponentType) clone(instance any) any {
	out := c.newInstance()
	for _, fs := range c.schema {
		src := fieldValue(instance, fs.name)
		dst := fieldValue(out, fs.name)
		if !dst.CanSet() {
			continue
		}
		fs.kind.Copy(src, dst)
	}
	return out
}

package ecs

import (
	"encoding/json"
	"reflect"
)

// Kind describes how a schema field's value is defaulted, cloned, and
// copied. The fixed primitive kinds (Number, Boolean, String, Opaque,
// Array, JSON) are registered on every World; client code may register
// additional kinds at world-construction time via WithKind.
type Kind struct {
	ID string

	// Default returns the zero value this kind should install on a freshly
	// constructed field when the component has no explicit default. A nil
	// Default leaves the Go zero value in place.
	Default func() any

	// Clone returns an independent copy of v suitable for assignment onto
	// another component's field of the same kind.
	Clone func(v reflect.Value) reflect.Value

	// Copy overlays src onto dst (both whole field values of this kind),
	// applying Clone where the kind requires independence (Array, JSON).
	Copy func(src, dst reflect.Value)
}

func identityCopy(src, dst reflect.Value) {
	dst.Set(src)
}

func identityClone(v reflect.Value) reflect.Value {
	return v
}

func sliceClone(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Slice || v.IsNil() {
		return v
	}
	out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(out, v)
	return out
}

func sliceCopy(src, dst reflect.Value) {
	dst.Set(sliceClone(src))
}

func jsonClone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	data, err := json.Marshal(v.Interface())
	if err != nil {
		return v
	}
	out := reflect.New(v.Type())
	if err := json.Unmarshal(data, out.Interface()); err != nil {
		return v
	}
	return out.Elem()
}

func jsonCopy(src, dst reflect.Value) {
	dst.Set(jsonClone(src))
}

// KindNumber covers every Go integer/float field.
var KindNumber = Kind{ID: "Number", Clone: identityClone, Copy: identityCopy}

// KindBoolean covers bool fields.
var KindBoolean = Kind{ID: "Boolean", Clone: identityClone, Copy: identityCopy}

// KindString covers string fields.
var KindString = Kind{ID: "String", Clone: identityClone, Copy: identityCopy}

// KindOpaque is a shallow, reference-semantics copy: pointers,
// interfaces, and anything else not otherwise classified.
var KindOpaque = Kind{ID: "Opaque", Clone: identityClone, Copy: identityCopy}

// KindArray deep-copies slice fields so mutations on a clone never alias
// the original.
var KindArray = Kind{ID: "Array", Clone: sliceClone, Copy: sliceCopy}

// KindJSON deep-copies arbitrary struct/map data via a JSON marshal round
// trip, for fields too structured for Opaque's shallow semantics.
var KindJSON = Kind{ID: "JSON", Clone: jsonClone, Copy: jsonCopy}

// kindForGoKind infers a default Kind from a Go reflect.Kind, used when a
// schema field carries no explicit `ecs:"kind=..."` tag.
func kindForGoKind(k reflect.Kind) Kind {
	switch k {
	case reflect.Bool:
		return KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.String:
		return KindString
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Struct, reflect.Map:
		return KindJSON
	default:
		return KindOpaque
	}
}

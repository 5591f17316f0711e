package models

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// JSONValue is a generic type to represent any JSON value.
// This can be a string, json.Number, bool, nil, *JSONObject or JSONArray.
type JSONValue interface{}

// JSONObject represents a JSON object. Keys keep the order in which they
// first appeared in the source document.
type JSONObject = orderedmap.OrderedMap[string, JSONValue]

// JSONArray represents a JSON array, which is a slice of JSONValues.
type JSONArray []JSONValue

// Kind is the structural kind of a JSON value.
type Kind string

const (
	KindScalar Kind = "scalar"
	KindObject Kind = "object"
	KindArray  Kind = "array"
)

// ScalarType tags the type of a leaf value.
type ScalarType string

const (
	TypeString  ScalarType = "string"
	TypeNumber  ScalarType = "number"
	TypeBoolean ScalarType = "boolean"
	TypeNull    ScalarType = "null"
)

// Document holds a parsed JSON document.
type Document struct {
	Root JSONValue
	Kind Kind // Kind of the root value
}

// NewJSONObject returns an empty ordered object.
func NewJSONObject() *JSONObject {
	return orderedmap.New[string, JSONValue]()
}

// KindOf reports the structural kind of v.
func KindOf(v JSONValue) Kind {
	switch v.(type) {
	case *JSONObject:
		return KindObject
	case JSONArray:
		return KindArray
	default:
		return KindScalar
	}
}

// ScalarTypeOf reports the type tag of a scalar value. Containers report "".
func ScalarTypeOf(v JSONValue) ScalarType {
	switch v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case json.Number, float64, int, int64:
		return TypeNumber
	case bool:
		return TypeBoolean
	default:
		return ""
	}
}

// Keys returns the keys of obj in order.
func Keys(obj *JSONObject) []string {
	if obj == nil {
		return nil
	}
	keys := make([]string, 0, obj.Len())
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of direct entries in a container, 0 for scalars.
func Len(v JSONValue) int {
	switch c := v.(type) {
	case *JSONObject:
		if c == nil {
			return 0
		}
		return c.Len()
	case JSONArray:
		return len(c)
	default:
		return 0
	}
}

// Equal compares two values deeply. Objects must have the same keys in the
// same order; numbers compare by their literal text.
func Equal(a, b JSONValue) bool {
	switch av := a.(type) {
	case *JSONObject:
		bv, ok := b.(*JSONObject)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		pb := bv.Oldest()
		for pa := av.Oldest(); pa != nil; pa = pa.Next() {
			if pa.Key != pb.Key || !Equal(pa.Value, pb.Value) {
				return false
			}
			pb = pb.Next()
		}
		return true
	case JSONArray:
		bv, ok := b.(JSONArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

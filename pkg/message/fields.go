package message

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind names used in TYPE_MISMATCH errors.
const (
	KindObject = "object"
	KindArray  = "array"
	KindString = "string"
	KindNumber = "number"
	KindBool   = "bool"
	KindNull   = "null"
)

// KindOf returns the JSON kind of a generic value.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return KindNull
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	case string:
		return KindString
	case bool:
		return KindBool
	case json.Number, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return KindNumber
	}
	return fmt.Sprintf("%T", v)
}

// AsObject asserts that v is a JSON object.
func AsObject(v any) (Object, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, TypeMismatch("", KindObject, v)
	}
	return obj, nil
}

// Lookup returns the value of a required field.
func Lookup(obj Object, name string) (any, error) {
	v, ok := obj[name]
	if !ok {
		return nil, MissingField(name)
	}
	return v, nil
}

// Nested decodes the required field name with decode, qualifying any
// error path with the field name.
func Nested[T any](obj Object, name string, decode func(value any) (T, error)) (T, error) {
	var zero T
	v, err := Lookup(obj, name)
	if err != nil {
		return zero, err
	}
	out, err := decode(v)
	if err != nil {
		return zero, WithPrefix(name, err)
	}
	return out, nil
}

// String decodes a required string field.
func String(obj Object, name string) (string, error) {
	v, err := Lookup(obj, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", TypeMismatch(name, KindString, v)
	}
	return s, nil
}

// OptionalString decodes a string field that may be absent or null.
func OptionalString(obj Object, name string) (string, error) {
	v, ok := obj[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", TypeMismatch(name, KindString, v)
	}
	return s, nil
}

// Bool decodes a required bool field.
func Bool(obj Object, name string) (bool, error) {
	v, err := Lookup(obj, name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, TypeMismatch(name, KindBool, v)
	}
	return b, nil
}

// Float64 decodes a required numeric field.
func Float64(obj Object, name string) (float64, error) {
	v, err := Lookup(obj, name)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, TypeMismatch(name, KindNumber, v)
	}
	return f, nil
}

// Uint32 decodes a required integer field in the uint32 range.
func Uint32(obj Object, name string) (uint32, error) {
	v, err := Lookup(obj, name)
	if err != nil {
		return 0, err
	}
	i, ok := toInt64(v)
	if !ok || i < 0 || i > math.MaxUint32 {
		return 0, TypeMismatch(name, "uint32", v)
	}
	return uint32(i), nil
}

// Int32 decodes a required integer field in the int32 range.
func Int32(obj Object, name string) (int32, error) {
	v, err := Lookup(obj, name)
	if err != nil {
		return 0, err
	}
	i, ok := toInt64(v)
	if !ok || i < math.MinInt32 || i > math.MaxInt32 {
		return 0, TypeMismatch(name, "int32", v)
	}
	return int32(i), nil
}

// OptionalInt decodes an integer field that may be absent or null.
func OptionalInt(obj Object, name string) (int, error) {
	v, ok := obj[name]
	if !ok || v == nil {
		return 0, nil
	}
	i, ok := toInt64(v)
	if !ok || i < math.MinInt32 || i > math.MaxInt32 {
		return 0, TypeMismatch(name, "int", v)
	}
	return int(i), nil
}

// Float64Array decodes a required variable length numeric array.
func Float64Array(obj Object, name string) ([]float64, error) {
	v, err := Lookup(obj, name)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, TypeMismatch(name, KindArray, v)
	}
	out := make([]float64, len(items))
	for i, item := range items {
		f, ok := toFloat64(item)
		if !ok {
			return nil, TypeMismatch(fmt.Sprintf("%s[%d]", name, i), KindNumber, item)
		}
		out[i] = f
	}
	return out, nil
}

// FixedFloat64Array decodes a numeric array whose length must be exactly n.
// The length is checked before any element so a short or long array is
// always reported as SHAPE_MISMATCH.
func FixedFloat64Array(obj Object, name string, n int) ([]float64, error) {
	v, err := Lookup(obj, name)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, TypeMismatch(name, KindArray, v)
	}
	if len(items) != n {
		return nil, ShapeMismatch(name, n, len(items))
	}
	return Float64Array(obj, name)
}

// Float64s converts numbers into a generic array value.
func Float64s(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		return integral(n)
	case float32:
		return integral(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	}
	return 0, false
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// OptionalBool decodes a bool field that may be absent or null.
func OptionalBool(obj Object, name string) (bool, error) {
	v, ok := obj[name]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, TypeMismatch(name, KindBool, v)
	}
	return b, nil
}

package value

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/freeeve/cdict/internal/cderr"
)

// FromAny converts a Go value into a Value.
//
// Accepted: nil, bool, every integer kind that fits in int64, float32/64,
// string, json.Number, Value, slices and arrays of accepted values, maps
// with string keys (ordered by key), and pointers or interfaces to any of
// these. Anything else fails with an UnsupportedValueError naming the path
// of the offending element.
func FromAny(x any) (Value, error) {
	return fromAny(x, "$", 0)
}

// MustFromAny is FromAny for tests and literals; it panics on error.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

func fromAny(x any, path string, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, &cderr.UnsupportedValueError{Path: path, Reason: fmt.Sprintf("nesting deeper than %d", MaxDepth)}
	}

	// Fast paths for the common shapes produced by encoding/json.
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return *t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case json.Number:
		v, err := parseNumber(t)
		if err != nil {
			return Value{}, &cderr.UnsupportedValueError{Path: path, Type: "json.Number", Reason: err.Error()}
		}
		return v, nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := fromAny(item, path+"["+strconv.Itoa(i)+"]", depth+1)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		return fromStringMap(reflect.ValueOf(t), path, depth)
	}

	return fromReflect(reflect.ValueOf(x), path, depth)
}

func fromReflect(rv reflect.Value, path string, depth int) (Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, &cderr.UnsupportedValueError{Path: path, Type: rv.Type().String(), Reason: "integer overflows int64"}
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nilValue(rv.Type(), path)
		}
		return fromAny(rv.Elem().Interface(), path, depth+1)
	case reflect.Slice:
		if rv.IsNil() {
			return nilValue(rv.Type(), path)
		}
		fallthrough
	case reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			v, err := fromAny(rv.Index(i).Interface(), path+"["+strconv.Itoa(i)+"]", depth+1)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, &cderr.UnsupportedValueError{Path: path, Type: rv.Type().String(), Reason: "map keys must be strings"}
		}
		if rv.IsNil() {
			return nilValue(rv.Type(), path)
		}
		return fromStringMap(rv, path, depth)
	}

	typ := "invalid"
	if rv.IsValid() {
		typ = rv.Type().String()
	}
	return Value{}, &cderr.UnsupportedValueError{Path: path, Type: typ}
}

var valueType = reflect.TypeFor[Value]()

// nilValue maps a nil pointer, slice or map to null when a non-nil value of
// the same type could be converted.
func nilValue(t reflect.Type, path string) (Value, error) {
	if !encodable(t, map[reflect.Type]bool{}) {
		return Value{}, &cderr.UnsupportedValueError{Path: path, Type: t.String(), Reason: "nil of a type that cannot be encoded"}
	}
	return Null(), nil
}

// encodable reports whether values of type t can be converted, ignoring
// range limits such as uint64 overflow.
func encodable(t reflect.Type, seen map[reflect.Type]bool) bool {
	if t == valueType {
		return true
	}
	if done, ok := seen[t]; ok {
		return done
	}
	seen[t] = true // recursive types are judged by their other parts
	ok := false
	switch t.Kind() {
	case reflect.Bool, reflect.String, reflect.Float32, reflect.Float64, reflect.Interface,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		ok = true
	case reflect.Pointer, reflect.Slice, reflect.Array:
		ok = encodable(t.Elem(), seen)
	case reflect.Map:
		ok = t.Key().Kind() == reflect.String && encodable(t.Elem(), seen)
	}
	seen[t] = ok
	return ok
}

func fromStringMap(rv reflect.Value, path string, depth int) (Value, error) {
	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	sort.Strings(keys)

	fields := make([]Field, len(keys))
	for i, k := range keys {
		elem := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
		v, err := fromAny(elem.Interface(), path+"."+k, depth+1)
		if err != nil {
			return Value{}, err
		}
		fields[i] = Field{Key: k, Value: v}
	}
	return Map(fields...), nil
}

// ToAny converts v into plain Go values: nil, bool, int64, float64, string,
// []any and map[string]any. Map key order is lost.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Key] = f.Value.ToAny()
		}
		return out
	default:
		return nil
	}
}

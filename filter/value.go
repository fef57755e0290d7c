// Package filter interprets caller filters against an entity's declared
// search fields and associations. Raw filter values are decoded once
// into the Value variants below; everything downstream switches on the
// variant instead of inspecting dynamic shapes.
package filter

import (
	"reflect"
	"sort"
	"time"
)

// Value is a decoded filter value.
type Value interface {
	value()
}

// Scalar matches a column equal to V. A nil V matches NULL.
type Scalar struct{ V any }

// In matches a column equal to any element.
type In []any

// Not matches a column different from V. A nil V matches NOT NULL.
type Not struct{ V any }

// NotIn matches a column equal to none of the elements.
type NotIn []any

// Like matches a column against a SQL LIKE pattern.
type Like struct {
	Pattern       string
	CaseSensitive bool
}

// Op is a comparison operator.
type Op string

const (
	GT  Op = "$gt"
	GTE Op = "$gte"
	LT  Op = "$lt"
	LTE Op = "$lte"
)

// Compare matches a column ordered against V.
type Compare struct {
	Op Op
	V  any
}

// And matches when every element matches.
type And []Value

// FieldRef matches a column equal to another joined column. It only
// appears in association-level static conditions.
type FieldRef struct {
	TableAlias string
	Field      string
}

func (Scalar) value()   {}
func (In) value()       {}
func (Not) value()      {}
func (NotIn) value()    {}
func (Like) value()     {}
func (Compare) value()  {}
func (And) value()      {}
func (FieldRef) value() {}

type undefined struct{}

// Undefined stands for a filter that was not supplied. Decode rejects it,
// unlike nil, which searches for NULL.
var Undefined any = undefined{}

// Valid reports whether v is an applicable filter value.
func Valid(v any) bool {
	_, ok := Decode(v)
	return ok
}

// Decode validates and decodes a caller-supplied filter value:
//   - scalars (string, number, bool, time, nil) are always valid;
//   - arrays are valid when every element is a scalar;
//   - objects are valid when "$not" holds a scalar or an array of
//     scalars, or when "$and" is an array whose object elements are
//     themselves valid.
//
// Values that are already decoded pass through unchanged.
func Decode(v any) (Value, bool) {
	return decode(v, false)
}

// DecodeStatic decodes a condition declared on an association. Besides
// what Decode accepts it understands "$like", the comparison operators
// and {"equalsFieldFromAnotherAssociation": {"tableAlias", "field"}}.
func DecodeStatic(v any) (Value, bool) {
	return decode(v, true)
}

func decode(v any, static bool) (Value, bool) {
	switch x := v.(type) {
	case undefined:
		return nil, false
	case Value:
		return x, true
	case nil:
		return Scalar{}, true
	case map[string]any:
		return decodeObject(x, static)
	}
	if isScalar(v) {
		return Scalar{V: v}, true
	}
	if elems, ok := asSlice(v); ok {
		if !allScalars(elems) {
			return nil, false
		}
		return In(elems), true
	}
	return nil, false
}

func decodeObject(m map[string]any, static bool) (Value, bool) {
	if v, ok := m["$not"]; ok {
		if isScalar(v) || v == nil {
			return Not{V: v}, true
		}
		if elems, ok := asSlice(v); ok && allScalars(elems) {
			return NotIn(elems), true
		}
		return nil, false
	}

	if v, ok := m["$and"]; ok {
		elems, ok := asSlice(v)
		if !ok {
			return nil, false
		}
		out := make(And, 0, len(elems))
		for _, el := range elems {
			if isScalar(el) || el == nil {
				out = append(out, Scalar{V: el})
				continue
			}
			dv, ok := decode(el, static)
			if !ok {
				return nil, false
			}
			out = append(out, dv)
		}
		return out, true
	}

	if !static {
		return nil, false
	}

	if ref, ok := m["equalsFieldFromAnotherAssociation"].(map[string]any); ok {
		alias, _ := ref["tableAlias"].(string)
		field, _ := ref["field"].(string)
		if alias == "" || field == "" {
			return nil, false
		}
		return FieldRef{TableAlias: alias, Field: field}, true
	}

	if p, ok := m["$like"].(string); ok {
		return Like{Pattern: p}, true
	}

	var cmps And
	for _, op := range []Op{GT, GTE, LT, LTE} {
		if v, ok := m[string(op)]; ok {
			if !isScalar(v) {
				return nil, false
			}
			cmps = append(cmps, Compare{Op: op, V: v})
		}
	}
	switch len(cmps) {
	case 0:
		return nil, false
	case 1:
		return cmps[0], true
	}
	return cmps, true
}

var timeType = reflect.TypeOf(time.Time{})

// isScalar reports whether v is a non-nil, non-object value.
func isScalar(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Struct:
		return rv.Type() == timeType
	default:
		return false
	}
}

// allScalars rejects nil elements: NULL never matches inside IN lists.
func allScalars(elems []any) bool {
	for _, el := range elems {
		if !isScalar(el) {
			return false
		}
	}
	return true
}

// asSlice converts []any and typed slices such as []int into []any.
func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// staticConditions decodes an association's declared where map in key
// order. Undecodable entries are dropped.
func staticConditions(where map[string]any) []Condition {
	if len(where) == 0 {
		return nil
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		if v, ok := DecodeStatic(where[k]); ok {
			conds = append(conds, Condition{Field: k, Value: v})
		}
	}
	return conds
}

package filter_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/mickamy/ramster/filter"
)

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"undefined", filter.Undefined, false},
		{"null", nil, true},
		{"string", "adm", true},
		{"number", 3.0, true},
		{"bool", false, true},
		{"time", time.Now(), true},
		{"array of scalars", []any{1, "a", true}, true},
		{"typed array", []int{1, 2}, true},
		{"array with object", []any{1, map[string]any{}}, false},
		{"array with null", []any{1, nil}, false},
		{"not scalar", map[string]any{"$not": "x"}, true},
		{"not array", map[string]any{"$not": []any{1, 2}}, true},
		{"not nested object", map[string]any{"$not": map[string]any{"a": 1}}, false},
		{"not array with object", map[string]any{"$not": []any{map[string]any{}}}, false},
		{"and of not", map[string]any{"$and": []any{map[string]any{"$not": "x"}}}, true},
		{"and of invalid object", map[string]any{"$and": []any{map[string]any{"foo": map[string]any{}}}}, false},
		{"and with scalar element", map[string]any{"$and": []any{"x", map[string]any{"$not": "y"}}}, true},
		{"and not array", map[string]any{"$and": "x"}, false},
		{"empty object", map[string]any{}, false},
		{"unknown operator", map[string]any{"$gt": 1}, false},
		{"struct", struct{ A int }{1}, false},
		{"decoded value", filter.Like{Pattern: "a%"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := filter.Valid(tt.in); got != tt.want {
				t.Errorf("Valid(%#v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want filter.Value
	}{
		{"null", nil, filter.Scalar{}},
		{"scalar", "x", filter.Scalar{V: "x"}},
		{"array", []any{1, 2}, filter.In{1, 2}},
		{"typed array", []string{"a", "b"}, filter.In{"a", "b"}},
		{"not scalar", map[string]any{"$not": "x"}, filter.Not{V: "x"}},
		{"not null", map[string]any{"$not": nil}, filter.Not{}},
		{"not array", map[string]any{"$not": []any{1, 2}}, filter.NotIn{1, 2}},
		{
			"and",
			map[string]any{"$and": []any{[]any{1, 2}, map[string]any{"$not": []any{3}}}},
			filter.And{filter.In{1, 2}, filter.NotIn{3}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := filter.Decode(tt.in)
			if !ok {
				t.Fatalf("Decode(%#v) rejected", tt.in)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeStatic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want filter.Value
	}{
		{"like", map[string]any{"$like": "a%"}, filter.Like{Pattern: "a%"}},
		{"single comparison", map[string]any{"$gte": 3}, filter.Compare{Op: filter.GTE, V: 3}},
		{
			"range",
			map[string]any{"$gt": 1, "$lt": 9},
			filter.And{filter.Compare{Op: filter.GT, V: 1}, filter.Compare{Op: filter.LT, V: 9}},
		},
		{
			"field reference",
			map[string]any{"equalsFieldFromAnotherAssociation": map[string]any{"tableAlias": "userType", "field": "id"}},
			filter.FieldRef{TableAlias: "userType", Field: "id"},
		},
		{"plain scalar", true, filter.Scalar{V: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := filter.DecodeStatic(tt.in)
			if !ok {
				t.Fatalf("DecodeStatic(%#v) rejected", tt.in)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeStatic(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}

	if _, ok := filter.DecodeStatic(map[string]any{"equalsFieldFromAnotherAssociation": map[string]any{"field": "id"}}); ok {
		t.Error("field reference without alias accepted")
	}
}

package filter

import (
	"fmt"
	"slices"

	"github.com/mickamy/ramster/schema"
)

// Condition applies a decoded value to a column.
type Condition struct {
	Field string
	Value Value
}

// RelationSearch holds the conditions aimed at one association, plus
// those aimed one level deeper at its nested associations.
type RelationSearch struct {
	Conditions []Condition
	Nested     map[string][]Condition
}

// Empty reports whether no condition targets the association.
func (rs *RelationSearch) Empty() bool {
	if rs == nil {
		return true
	}
	if len(rs.Conditions) > 0 {
		return false
	}
	for _, conds := range rs.Nested {
		if len(conds) > 0 {
			return false
		}
	}
	return true
}

// Search is the outcome of interpreting filters: root-table conditions
// and per-association buckets keyed by association name.
type Search struct {
	Root      []Condition
	Relations map[string]*RelationSearch
}

// Relation returns the bucket for name, or nil.
func (s Search) Relation(name string) *RelationSearch {
	return s.Relations[name]
}

// WhereQuery walks the entity's search fields in declaration order and
// turns the matching filters into conditions. Invalid or absent values
// are skipped. Fields listed in exactMatch bypass like patterns and use
// closed ranges.
func WhereQuery(e *schema.Entity, filters map[string]any, exactMatch []string) Search {
	s := Search{Relations: map[string]*RelationSearch{}}

	for _, f := range e.SearchFields {
		exact := slices.Contains(exactMatch, f.Field)

		var v Value
		raw, present := filters[f.Field]
		if dv, ok := Decode(orUndefined(raw, present)); ok {
			v = dv
			if f.Like != "" && !exact {
				v = likeValue(f, v)
			}
		} else if len(f.Between) == 2 {
			v = betweenValue(f, filters, exact)
		}
		if v == nil {
			continue
		}

		cond := Condition{Field: f.Column(), Value: v}
		if f.AssociatedModel == "" {
			s.Root = append(s.Root, cond)
			continue
		}
		rs := s.Relations[f.AssociatedModel]
		if rs == nil {
			rs = &RelationSearch{}
			s.Relations[f.AssociatedModel] = rs
		}
		if f.NestedInclude == "" {
			rs.Conditions = append(rs.Conditions, cond)
			continue
		}
		if rs.Nested == nil {
			rs.Nested = map[string][]Condition{}
		}
		rs.Nested[f.NestedInclude] = append(rs.Nested[f.NestedInclude], cond)
	}
	return s
}

func orUndefined(v any, present bool) any {
	if !present {
		return Undefined
	}
	return v
}

// likeValue wraps a scalar into a pattern. Other shapes keep their
// exact semantics.
func likeValue(f schema.SearchField, v Value) Value {
	sc, ok := v.(Scalar)
	if !ok || sc.V == nil {
		return v
	}
	pattern := fmt.Sprint(sc.V)
	if f.Like[0] == '%' {
		pattern = "%" + pattern
	}
	if f.Like[1] == '%' {
		pattern += "%"
	}
	return Like{Pattern: pattern, CaseSensitive: f.CaseSensitive}
}

// betweenValue reads the two companion bound filters of a range field.
func betweenValue(f schema.SearchField, filters map[string]any, exact bool) Value {
	lowOp, highOp := GT, LT
	if exact {
		lowOp, highOp = GTE, LTE
	}

	var bounds And
	if lo, ok := filters[f.Field+f.Between[0]]; ok && isScalar(lo) {
		bounds = append(bounds, Compare{Op: lowOp, V: lo})
	}
	if hi, ok := filters[f.Field+f.Between[1]]; ok && isScalar(hi) {
		bounds = append(bounds, Compare{Op: highOp, V: hi})
	}
	switch len(bounds) {
	case 0:
		return nil
	case 1:
		return bounds[0]
	}
	return bounds
}

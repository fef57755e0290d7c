package filter

import (
	"slices"

	"github.com/mickamy/ramster/schema"
)

// Include is a relation selected for joining, with the conditions that
// apply to its join.
type Include struct {
	Relation   *schema.Relation
	Conditions []Condition
	Order      []schema.OrderItem
	Inner      []*Include
}

// Filtered reports whether this node or any descendant carries
// conditions. Filtered nodes are joined with INNER JOIN.
func (i *Include) Filtered() bool {
	if len(i.Conditions) > 0 {
		return true
	}
	for _, in := range i.Inner {
		if in.Filtered() {
			return true
		}
	}
	return false
}

// Includes lists the relations joined by the row query and, separately,
// the ones joined by the count query. Count only holds filtered
// relations so unrelated one-to-many joins cannot inflate totals.
type Includes struct {
	Include []*Include
	Count   []*Include
}

// IncludeQuery selects the entity's relations that were requested by
// name or that received conditions from s. Declared association
// conditions are ANDed with caller conditions; on nested relations they
// apply only when the caller supplied none.
func IncludeQuery(e *schema.Entity, requested []string, s Search) Includes {
	var out Includes
	for _, rel := range e.Relations() {
		rs := s.Relation(rel.Name)
		if !slices.Contains(requested, rel.Name) && rs.Empty() {
			continue
		}
		var conds []Condition
		var nested map[string][]Condition
		if rs != nil {
			conds, nested = rs.Conditions, rs.Nested
		}
		inc := buildInclude(rel, conds, nested, false)
		out.Include = append(out.Include, inc)
		if inc.Filtered() {
			out.Count = append(out.Count, inc)
		}
	}
	return out
}

func buildInclude(rel *schema.Relation, conds []Condition, nested map[string][]Condition, nestedLevel bool) *Include {
	if !rel.HasModel {
		bridge := &Include{Relation: rel}
		for _, in := range rel.Inner {
			bridge.Inner = append(bridge.Inner, buildInclude(in, conds, nested, nestedLevel))
		}
		return bridge
	}

	static := staticConditions(rel.Where)
	var own []Condition
	switch {
	case !nestedLevel:
		own = append(static, conds...)
	case len(conds) > 0:
		own = conds
	default:
		own = static
	}

	inc := &Include{Relation: rel, Conditions: own, Order: rel.Order}
	for _, in := range rel.Inner {
		inc.Inner = append(inc.Inner, buildInclude(in, nested[in.Name], nil, true))
	}
	return inc
}

package component

import (
	"context"
	"fmt"
	"slices"

	"github.com/mickamy/ramster/filter"
	"github.com/mickamy/ramster/orm"
	"github.com/mickamy/ramster/query"
	"github.com/mickamy/ramster/schema"
)

// UpdateHook runs inside the update transaction before the statement.
type UpdateHook func(ctx context.Context, tx orm.Querier, c *Component, req UpdateRequest) error

// DeleteHook runs inside the delete transaction once per id.
type DeleteHook func(ctx context.Context, tx orm.Querier, c *Component, id any) error

// Hooks are entity-specific write policies. An error from any hook
// aborts the call and rolls back its transaction.
type Hooks struct {
	BeforeUpdate []UpdateHook
	BeforeDelete []DeleteHook
	AfterDelete  []DeleteHook
}

// Merge returns hooks running h's hooks first, then other's.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		BeforeUpdate: append(slices.Clone(h.BeforeUpdate), other.BeforeUpdate...),
		BeforeDelete: append(slices.Clone(h.BeforeDelete), other.BeforeDelete...),
		AfterDelete:  append(slices.Clone(h.AfterDelete), other.AfterDelete...),
	}
}

// ProtectIDs rejects updates and deletes addressing any of ids by
// primary key. Ids compare by their printed form, so 1 and "1" match.
func ProtectIDs(ids ...any) Hooks {
	protected := make([]string, len(ids))
	for i, id := range ids {
		protected[i] = fmt.Sprint(id)
	}
	isProtected := func(id any) bool {
		return slices.Contains(protected, fmt.Sprint(id))
	}

	return Hooks{
		BeforeUpdate: []UpdateHook{func(_ context.Context, _ orm.Querier, c *Component, req UpdateRequest) error {
			raw, ok := req.Where[c.entity.PrimaryKey]
			if !ok {
				return nil
			}
			for _, id := range addressed(raw) {
				if isProtected(id) {
					return invalid(fmt.Sprintf("%s %v is protected", c.entity.Name, id))
				}
			}
			return nil
		}},
		BeforeDelete: []DeleteHook{func(_ context.Context, _ orm.Querier, c *Component, id any) error {
			if isProtected(id) {
				return invalid(fmt.Sprintf("%s %v is protected", c.entity.Name, id))
			}
			return nil
		}},
	}
}

// addressed lists the ids a primary key criterion can select.
func addressed(raw any) []any {
	v, ok := filter.Decode(raw)
	if !ok {
		return nil
	}
	switch x := v.(type) {
	case filter.Scalar:
		return []any{x.V}
	case filter.In:
		return x
	}
	return nil
}

// ForbidReferenced rejects deleting a row while live rows of the named
// has-one, has-many or belongs-to-many association still point at it.
func ForbidReferenced(association string) Hooks {
	return Hooks{
		BeforeDelete: []DeleteHook{func(ctx context.Context, tx orm.Querier, c *Component, id any) error {
			rel, ok := c.entity.Relation(association)
			if !ok {
				return fmt.Errorf("component: %s has no association %q", c.entity.Name, association)
			}
			if rel.ModelKey != c.entity.PrimaryKey {
				return fmt.Errorf("component: %s.%s does not reference %s", c.entity.Name, association, c.entity.Name)
			}

			d := tx.Dialect()
			sql, args := query.Clause(d, "", rel.TargetKey, filter.Scalar{V: id})
			q := orm.Table(tx, rel.Table, rel.TargetKey).Where(sql, args...)
			if rel.HasModel {
				q = q.Where(d.QuoteIdent(schema.DeletedAt) + " IS NULL")
			}
			used, err := q.Exists(ctx)
			if err != nil {
				return err //nolint:wrapcheck // pass through
			}
			if used {
				return invalid(fmt.Sprintf("%s %v is referenced by %s", c.entity.Name, id, association))
			}
			return nil
		}},
	}
}

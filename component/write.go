package component

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/mickamy/ramster/filter"
	"github.com/mickamy/ramster/orm"
	"github.com/mickamy/ramster/query"
	"github.com/mickamy/ramster/schema"
)

// BulkOptions configures BulkCreate.
type BulkOptions struct {
	// Tx runs the insert in the caller's transaction.
	Tx orm.Querier
}

// UpdateRequest is the input of Update.
type UpdateRequest struct {
	Values query.Record
	// Where maps columns to filter values; it must not be empty.
	Where map[string]any
	Tx    orm.Querier
}

// UpdateResult reports how many rows Update changed.
type UpdateResult struct {
	Updated int64 `json:"updated"`
}

// DeleteRequest is the input of Delete.
type DeleteRequest struct {
	IDs []any
	Tx  orm.Querier
}

// DeleteResult reports how many rows Delete marked as deleted.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

// Create inserts values and returns the stored row. Keys that are not
// stored columns are ignored.
func (c *Component) Create(ctx context.Context, values query.Record) (query.Record, error) {
	recs, err := c.BulkCreate(ctx, []query.Record{values}, BulkOptions{})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, orm.ErrNotFound
	}
	return recs[0], nil
}

// BulkCreate inserts every record with one statement and returns the
// stored rows in input order. Columns missing from a record are NULL.
func (c *Component) BulkCreate(ctx context.Context, records []query.Record, opts BulkOptions) ([]query.Record, error) {
	if len(records) == 0 {
		return []query.Record{}, nil
	}

	cols := c.insertColumns(records)
	if len(cols) == 0 {
		return nil, invalid("no known columns to insert")
	}
	if slices.Contains(cols, c.entity.PrimaryKey) {
		for _, rec := range records {
			if rec[c.entity.PrimaryKey] == nil {
				return nil, invalid(c.entity.PrimaryKey + " must be set on every record or on none")
			}
		}
	}
	now := orm.Now(ctx)
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, 0, len(cols)+2)
		for _, col := range cols {
			row = append(row, rec[col])
		}
		rows[i] = append(row, now, now)
	}
	cols = append(cols, schema.CreatedAt, schema.UpdatedAt)

	var out []query.Record
	err := c.inTx(ctx, opts.Tx, func(tx orm.Querier) error {
		ids, err := orm.Table(tx, c.entity.Table, c.entity.PrimaryKey).InsertAll(ctx, cols, rows)
		if err != nil {
			return err //nolint:wrapcheck // pass through
		}
		out, err = c.byIDs(ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// insertColumns returns the stored columns set by any record, in
// declaration order. Timestamps are stamped by the component.
func (c *Component) insertColumns(records []query.Record) []string {
	var cols []string
	for _, col := range c.entity.StoredColumns() {
		if isTimestamp(col) {
			continue
		}
		for _, rec := range records {
			if _, ok := rec[col]; ok {
				cols = append(cols, col)
				break
			}
		}
	}
	return cols
}

// byIDs reads freshly written rows in the order of ids.
func (c *Component) byIDs(ctx context.Context, tx orm.Querier, ids []any) ([]query.Record, error) {
	recs, err := c.fetch(ctx, tx, query.Request{
		Entity:  c.entity,
		Dialect: tx.Dialect(),
		Where:   []filter.Condition{{Field: c.entity.PrimaryKey, Value: filter.In(ids)}},
	})
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]query.Record, len(recs))
	for _, r := range recs {
		byKey[fmt.Sprint(r[c.entity.PrimaryKey])] = r
	}
	out := make([]query.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := byKey[fmt.Sprint(id)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Update sets req.Values on the live rows matching req.Where and stamps
// updatedAt. The primary key and the createdAt and deletedAt columns
// cannot be set.
func (c *Component) Update(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	if len(req.Where) == 0 {
		return nil, ErrNoCriteria
	}

	var cols []string
	var vals []any
	for _, col := range c.entity.StoredColumns() {
		v, ok := req.Values[col]
		if !ok || col == c.entity.PrimaryKey || isTimestamp(col) {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, v)
	}
	if len(cols) == 0 {
		return nil, invalid("no known columns to update")
	}
	cols = append(cols, schema.UpdatedAt)
	vals = append(vals, orm.Now(ctx))

	var res UpdateResult
	err := c.inTx(ctx, req.Tx, func(tx orm.Querier) error {
		q, err := c.criteria(tx, req.Where)
		if err != nil {
			return err
		}
		for _, hook := range c.hooks.BeforeUpdate {
			if err := hook(ctx, tx, c, req); err != nil {
				return err
			}
		}
		n, err := q.UpdateAll(ctx, cols, vals)
		if err != nil {
			return err //nolint:wrapcheck // pass through
		}
		res.Updated = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// criteria renders where as unqualified conditions on live rows.
func (c *Component) criteria(tx orm.Querier, where map[string]any) (*orm.Query, error) {
	d := tx.Dialect()
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := orm.Table(tx, c.entity.Table, c.entity.PrimaryKey)
	applied := 0
	for _, k := range keys {
		if !c.entity.HasColumn(k) {
			return nil, invalid(fmt.Sprintf("unknown column %q in criteria", k))
		}
		v, ok := filter.Decode(where[k])
		if !ok {
			return nil, invalid(fmt.Sprintf("invalid criteria value for %q", k))
		}
		sql, args := query.Clause(d, "", k, v)
		if sql == "" {
			continue
		}
		q = q.Where(sql, args...)
		applied++
	}
	if applied == 0 {
		return nil, ErrNoCriteria
	}
	return q.Where(d.QuoteIdent(schema.DeletedAt) + " IS NULL"), nil
}

// Delete soft-deletes the rows with the given ids in one transaction.
// Hooks run per id; any failure rolls back every id.
func (c *Component) Delete(ctx context.Context, req DeleteRequest) (*DeleteResult, error) {
	if len(req.IDs) == 0 {
		return nil, invalid("cannot delete without ids")
	}

	now := orm.Now(ctx)
	var res DeleteResult
	err := c.inTx(ctx, req.Tx, func(tx orm.Querier) error {
		d := tx.Dialect()
		for _, id := range req.IDs {
			for _, hook := range c.hooks.BeforeDelete {
				if err := hook(ctx, tx, c, id); err != nil {
					return err
				}
			}

			sql, args := query.Clause(d, "", c.entity.PrimaryKey, filter.Scalar{V: id})
			n, err := orm.Table(tx, c.entity.Table, c.entity.PrimaryKey).
				Where(sql, args...).
				Where(d.QuoteIdent(schema.DeletedAt)+" IS NULL").
				UpdateAll(ctx, []string{schema.DeletedAt, schema.UpdatedAt}, []any{now, now})
			if err != nil {
				return err //nolint:wrapcheck // pass through
			}
			res.Deleted += n

			for _, hook := range c.hooks.AfterDelete {
				if err := hook(ctx, tx, c, id); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func isTimestamp(col string) bool {
	return slices.Contains([]string{schema.CreatedAt, schema.UpdatedAt, schema.DeletedAt}, col)
}

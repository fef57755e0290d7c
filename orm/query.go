package orm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Query represents a pending single-table statement. It backs the
// write paths (insert, update, soft delete) and existence checks.
// Where returns a new Query; the receiver is never modified.
type Query struct {
	db    Querier
	table string
	pk    string

	wheres []whereClause
}

type whereClause struct {
	clause string
	args   []any
}

// Table starts a Query against table with primary key pk.
func Table(db Querier, table, pk string) *Query {
	return &Query{db: db, table: table, pk: pk}
}

// clone returns a shallow copy with slices copied to avoid aliasing.
func (q *Query) clone() *Query {
	q2 := *q
	q2.wheres = append([]whereClause(nil), q.wheres...)
	return &q2
}

// --- Builder methods ---

func (q *Query) Where(clause string, args ...any) *Query {
	if clause == "" {
		return q
	}
	q2 := q.clone()
	q2.wheres = append(q2.wheres, whereClause{clause, args})
	return q2
}

// Count returns the number of rows matching the current query conditions.
func (q *Query) Count(ctx context.Context) (int64, error) {
	query, args := q.buildCount()
	return QueryInt64(ctx, q.db, query, args...)
}

// Exists returns true if at least one row matches the current query conditions.
func (q *Query) Exists(ctx context.Context) (bool, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertAll inserts rows in a single INSERT statement and returns their
// primary keys in row order. When columns include the primary key every
// row must supply it and those values are returned. Otherwise the keys
// are generated: read back through RETURNING (PostgreSQL) or derived
// from LastInsertId, which holds for auto-increment keys inserted by one
// statement.
func (q *Query) InsertAll(ctx context.Context, columns []string, rows [][]any) ([]any, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if len(columns) == 0 {
		return nil, errors.New("orm: Insert without columns is not allowed")
	}

	pkAt := slices.Index(columns, q.pk)
	var values []any
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("orm: row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if pkAt >= 0 && row[pkAt] == nil {
			return nil, fmt.Errorf("orm: row %d has no value for primary key %q", i, q.pk)
		}
		values = append(values, row...)
	}

	query := q.buildInsert(columns, len(rows))
	d := q.db.Dialect()
	ids := make([]any, len(rows))

	if pkAt >= 0 {
		if _, err := q.exec(ctx, query, values); err != nil {
			return nil, err
		}
		for i, row := range rows {
			ids[i] = row[pkAt]
		}
		return ids, nil
	}

	if d.UseReturning() {
		query += d.ReturningClause(q.pk)
		rs, err := q.db.QueryContext(ctx, Rebind(d, query), values...)
		if err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		defer func() { _ = rs.Close() }()
		for i := 0; rs.Next() && i < len(ids); i++ {
			var id int64
			if err := rs.Scan(&id); err != nil {
				return nil, err //nolint:wrapcheck // pass through
			}
			ids[i] = id
		}
		return ids, rs.Err() //nolint:wrapcheck // pass through
	}

	result, err := q.db.ExecContext(ctx, Rebind(d, query), values...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	firstID, err := result.LastInsertId()
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	// MySQL reports the first id of a multi-row insert, SQLite the last.
	if d.Name() == "sqlite3" {
		firstID -= int64(len(rows) - 1)
	}
	for i := range ids {
		ids[i] = firstID + int64(i)
	}
	return ids, nil
}

// UpdateAll sets columns on every row matching the accumulated WHERE
// clauses and returns the number of affected rows.
// Returns ErrNoWhere if no WHERE clauses are set.
func (q *Query) UpdateAll(ctx context.Context, columns []string, values []any) (int64, error) {
	if len(q.wheres) == 0 {
		return 0, ErrNoWhere
	}
	if len(columns) == 0 || len(columns) != len(values) {
		return 0, errors.New("orm: Update requires matching columns and values")
	}
	query, args := q.buildUpdate(columns)
	return q.exec(ctx, query, append(append([]any(nil), values...), args...))
}

func (q *Query) exec(ctx context.Context, query string, args []any) (int64, error) {
	result, err := q.db.ExecContext(ctx, Rebind(q.db.Dialect(), query), args...)
	if err != nil {
		return 0, err //nolint:wrapcheck // pass through
	}
	return result.RowsAffected() //nolint:wrapcheck // pass through
}

// --- SQL building ---

// qi quotes an identifier (table/column name) using the dialect.
func (q *Query) qi(name string) string {
	return q.db.Dialect().QuoteIdent(name)
}

// quoteColumns joins column names with dialect-aware quoting.
func (q *Query) quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = q.qi(c)
	}
	return strings.Join(quoted, ", ")
}

func (q *Query) buildCount() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(q.qi(q.table))
	args := q.appendWhere(&b)
	return b.String(), args
}

func (q *Query) buildInsert(columns []string, rowCount int) string {
	ph := make([]string, len(columns))
	for i := range ph {
		ph[i] = "?"
	}
	oneRow := "(" + strings.Join(ph, ", ") + ")"

	rows := make([]string, rowCount)
	for i := range rows {
		rows[i] = oneRow
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		q.qi(q.table),
		q.quoteColumns(columns),
		strings.Join(rows, ", "),
	)
}

func (q *Query) buildUpdate(setCols []string) (string, []any) {
	sets := make([]string, len(setCols))
	for i, col := range setCols {
		sets[i] = q.qi(col) + " = ?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", q.qi(q.table), strings.Join(sets, ", "))
	args := q.appendWhere(&b)
	return b.String(), args
}

func (q *Query) appendWhere(b *strings.Builder) []any {
	if len(q.wheres) == 0 {
		return nil
	}

	var args []any
	b.WriteString(" WHERE ")
	for i, w := range q.wheres {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(w.clause)
		args = append(args, w.args...)
	}
	return args
}

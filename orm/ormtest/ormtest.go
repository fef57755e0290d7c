// Package ormtest provides a scripted orm.Conn for tests. Responses are
// queued up front and consumed in statement order; every statement is
// recorded for assertions.
package ormtest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mickamy/ramster/orm"
)

// Query holds a captured statement and its args.
type Query struct {
	SQL  string
	Args []any
}

type response struct {
	rows   *Rows
	result Result
	err    error
}

// Conn is a scripted orm.Conn.
type Conn struct {
	D orm.Dialect

	mu        sync.Mutex
	queries   []Query
	responses []response
	commits   int
	rollbacks int
}

// New creates a Conn with the given Dialect.
func New(d orm.Dialect) *Conn {
	return &Conn{D: d}
}

// ReturnRows queues rows for the next QueryContext call.
func (c *Conn) ReturnRows(r *Rows) *Conn {
	c.push(response{rows: r})
	return c
}

// ReturnCount queues a single-value result, as produced by COUNT(*).
func (c *Conn) ReturnCount(n int64) *Conn {
	return c.ReturnRows(NewRows([]string{"count"}, []any{n}))
}

// ReturnResult queues the sql.Result of the next ExecContext call.
func (c *Conn) ReturnResult(lastInsertID, rowsAffected int64) *Conn {
	c.push(response{result: Result{lastInsertID, rowsAffected}})
	return c
}

// ReturnError makes the next statement, query or exec, fail with err.
func (c *Conn) ReturnError(err error) *Conn {
	c.push(response{err: err})
	return c
}

func (c *Conn) push(r response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, r)
}

func (c *Conn) next(query string, args []any) response {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, Query{query, args})
	if len(c.responses) == 0 {
		return response{}
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	return r
}

func (c *Conn) QueryContext(_ context.Context, query string, args ...any) (orm.Rows, error) {
	r := c.next(query, args)
	if r.err != nil {
		return nil, r.err
	}
	if r.rows == nil {
		return NewRows(nil), nil
	}
	return r.rows, nil
}

func (c *Conn) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	r := c.next(query, args)
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func (c *Conn) Dialect() orm.Dialect { return c.D }

// Transaction records BEGIN and then COMMIT or ROLLBACK around fn.
func (c *Conn) Transaction(ctx context.Context, fn func(tx orm.Querier) error) (err error) {
	c.record("BEGIN")
	defer func() {
		if p := recover(); p != nil {
			c.finish(false)
			panic(p)
		}
		c.finish(err == nil)
	}()
	return fn(c)
}

func (c *Conn) record(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, Query{SQL: query})
}

func (c *Conn) finish(commit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if commit {
		c.commits++
		c.queries = append(c.queries, Query{SQL: "COMMIT"})
		return
	}
	c.rollbacks++
	c.queries = append(c.queries, Query{SQL: "ROLLBACK"})
}

var _ orm.Conn = (*Conn)(nil)

// Queries returns every captured statement in order.
func (c *Conn) Queries() []Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Query(nil), c.queries...)
}

// LastQuery returns the most recently captured statement, or panics if empty.
func (c *Conn) LastQuery() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries[len(c.queries)-1]
}

// Commits returns how many transactions committed.
func (c *Conn) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// Rollbacks returns how many transactions rolled back.
func (c *Conn) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

// Result is a fixed sql.Result.
type Result struct {
	LastID   int64
	Affected int64
}

func (r Result) LastInsertId() (int64, error) { return r.LastID, nil }
func (r Result) RowsAffected() (int64, error) { return r.Affected, nil }

// Rows is an in-memory orm.Rows.
type Rows struct {
	columns []string
	values  [][]any
	pos     int
	closed  bool
}

// NewRows builds Rows from column labels and value tuples.
func NewRows(columns []string, values ...[]any) *Rows {
	return &Rows{columns: columns, values: values}
}

// FromMaps builds Rows from maps sharing the given column labels.
func FromMaps(columns []string, rows ...map[string]any) *Rows {
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(columns))
		for j, col := range columns {
			values[i][j] = row[col]
		}
	}
	return NewRows(columns, values...)
}

func (r *Rows) Columns() ([]string, error) { return r.columns, nil }

func (r *Rows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

var errScanArity = errors.New("ormtest: scan destination count does not match columns")

func (r *Rows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.values) {
		return errors.New("ormtest: Scan called without a current row")
	}
	row := r.values[r.pos-1]
	if len(dest) != len(row) {
		return errScanArity
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("ormtest: column %q: %w", r.columns[i], err)
		}
	}
	return nil
}

func (r *Rows) Close() error {
	r.closed = true
	return nil
}

func (r *Rows) Err() error { return nil }

func assign(dest, v any) error {
	switch d := dest.(type) {
	case *any:
		*d = v
	case *int64:
		switch n := v.(type) {
		case int64:
			*d = n
		case int:
			*d = int64(n)
		default:
			return fmt.Errorf("cannot assign %T to *int64", v)
		}
	case *string:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("cannot assign %T to *string", v)
		}
		*d = s
	default:
		return fmt.Errorf("unsupported destination %T", dest)
	}
	return nil
}

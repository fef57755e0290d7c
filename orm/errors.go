package orm

import "errors"

var (
	// ErrNotFound is returned when a query expects exactly one row but finds none.
	ErrNotFound = errors.New("orm: not found")

	// ErrNoWhere guards UPDATE against touching every row.
	ErrNoWhere = errors.New("orm: statement without WHERE clause is not allowed")
)

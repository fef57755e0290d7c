package orm

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Row is a single result row keyed by column label.
type Row = map[string]any

// ScanRows reads every remaining row of rows into maps and closes rows.
// Driver []byte values are returned as strings.
func ScanRows(rows Rows) ([]Row, error) {
	defer func() { _ = rows.Close() }()

	var result []Row
	for rows.Next() {
		row := make(Row)
		if err := sqlx.MapScan(rows, row); err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	return result, nil
}

// QueryRows rebinds query for the Querier's dialect, runs it and scans
// every row.
func QueryRows(ctx context.Context, db Querier, query string, args ...any) ([]Row, error) {
	rows, err := db.QueryContext(ctx, Rebind(db.Dialect(), query), args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	return ScanRows(rows)
}

// QueryInt64 runs a single-value query such as COUNT(*).
func QueryInt64(ctx context.Context, db Querier, query string, args ...any) (int64, error) {
	rows, err := db.QueryContext(ctx, Rebind(db.Dialect(), query), args...)
	if err != nil {
		return 0, err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err //nolint:wrapcheck // pass through
		}
		return 0, errors.New("orm: query returned no rows")
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, err //nolint:wrapcheck // pass through
	}
	return n, rows.Err() //nolint:wrapcheck // pass through
}

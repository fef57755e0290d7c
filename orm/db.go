package orm

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Rows is the subset of *sql.Rows the query layer reads from.
// *sql.Rows and *sqlx.Rows both satisfy it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Querier is the common interface for DB and Tx.
// Every statement of a multi-step flow runs against the same Querier.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Dialect() Dialect
}

// Conn is a Querier that can open a transaction scope.
type Conn interface {
	Querier
	Transaction(ctx context.Context, fn func(tx Querier) error) error
}

// Logger is the interface for query logging.
type Logger interface {
	Log(ctx context.Context, query string, args ...any)
}

// DB wraps *sqlx.DB with a Dialect and satisfies Conn.
type DB struct {
	raw    *sqlx.DB
	d      Dialect
	logger Logger
}

// New wraps a *sql.DB with the given Dialect.
func New(db *sql.DB, d Dialect) *DB {
	return &DB{raw: sqlx.NewDb(db, d.Name()), d: d}
}

// Open opens a database for the given driver and wraps it.
func Open(driver, dsn string) (*DB, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	raw, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err //nolint:wrapcheck // thin wrapper
	}
	return &DB{raw: raw, d: d}, nil
}

// Debug returns a new *DB that logs every query using the given Logger.
// The original DB is not modified.
func (db *DB) Debug(l Logger) *DB {
	return &DB{raw: db.raw, d: db.d, logger: l}
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if db.logger != nil {
		db.logger.Log(ctx, query, args...)
	}
	rows, err := db.raw.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // thin wrapper
	}
	return rows, nil
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if db.logger != nil {
		db.logger.Log(ctx, query, args...)
	}
	return db.raw.ExecContext(ctx, query, args...) //nolint:wrapcheck // thin wrapper
}

// Begin starts a transaction.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	raw, err := db.raw.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err //nolint:wrapcheck // thin wrapper
	}
	tx := &Tx{raw: raw, d: db.d, logger: db.logger, id: uuid.NewString()}
	tx.log(ctx, "BEGIN")
	return tx, nil
}

// Transaction executes fn within a transaction.
// If fn returns nil the transaction is committed.
// If fn returns an error or panics the transaction is rolled back.
func (db *DB) Transaction(ctx context.Context, fn func(tx Querier) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	ctx = WithTxID(ctx, tx.id)
	defer func() {
		if p := recover(); p != nil {
			_ = tx.rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.rollback(ctx)
		}
	}()
	err = fn(tx)
	if err != nil {
		return err
	}
	return tx.commit(ctx)
}

// Close closes the underlying database handle.
func (db *DB) Close() error { return db.raw.Close() } //nolint:wrapcheck // thin wrapper

func (db *DB) Dialect() Dialect { return db.d }

// Tx wraps *sqlx.Tx with a Dialect and satisfies Conn.
// Statements issued through a Tx are logged with its transaction id.
type Tx struct {
	raw    *sqlx.Tx
	d      Dialect
	logger Logger
	id     string
}

// ID returns the identifier attached to this transaction's log lines.
func (tx *Tx) ID() string { return tx.id }

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	tx.log(ctx, query, args...)
	rows, err := tx.raw.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // thin wrapper
	}
	return rows, nil
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx.log(ctx, query, args...)
	return tx.raw.ExecContext(ctx, query, args...) //nolint:wrapcheck // thin wrapper
}

// Transaction runs fn inside the already open transaction. Commit and
// rollback stay with the owner of tx.
func (tx *Tx) Transaction(_ context.Context, fn func(tx Querier) error) error {
	return fn(tx)
}

// Commit commits the transaction.
func (tx *Tx) Commit() error { return tx.commit(context.Background()) }

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error { return tx.rollback(context.Background()) }

func (tx *Tx) Dialect() Dialect { return tx.d }

func (tx *Tx) commit(ctx context.Context) error {
	tx.log(ctx, "COMMIT")
	return tx.raw.Commit() //nolint:wrapcheck // thin wrapper
}

func (tx *Tx) rollback(ctx context.Context) error {
	tx.log(ctx, "ROLLBACK")
	return tx.raw.Rollback() //nolint:wrapcheck // thin wrapper
}

func (tx *Tx) log(ctx context.Context, query string, args ...any) {
	if tx.logger == nil {
		return
	}
	if TxID(ctx) == "" {
		ctx = WithTxID(ctx, tx.id)
	}
	tx.logger.Log(ctx, query, args...)
}

type txIDKey struct{}

// WithTxID returns a child context carrying a transaction id for logging.
func WithTxID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, txIDKey{}, id)
}

// TxID returns the transaction id carried by ctx, or "".
func TxID(ctx context.Context) string {
	id, _ := ctx.Value(txIDKey{}).(string)
	return id
}

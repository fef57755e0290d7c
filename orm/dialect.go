package orm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Dialect abstracts SQL differences between database engines.
type Dialect interface {
	// Name returns the database/sql driver family ("mysql", "postgres", "sqlite3").
	Name() string

	// BindType returns the sqlx bind type used to rewrite "?" placeholders.
	BindType() int

	// QuoteIdent quotes an identifier (table name, column name, alias).
	// Embedded quote characters are doubled so the identifier cannot
	// terminate early.
	QuoteIdent(name string) string

	// QuoteLiteral renders v as an escaped SQL literal. It is only used
	// when a statement is interpolated for logging or EXPLAIN output;
	// executed statements always bind their values.
	QuoteLiteral(v any) string

	// Like returns a match of column against pattern, a LIKE pattern
	// using % and _, as SQL with a single "?" placeholder and the value
	// to bind to it.
	Like(column, pattern string, caseSensitive bool) (string, any)

	// UseReturning reports whether INSERT should use a RETURNING clause
	// to retrieve the auto-generated primary key (PostgreSQL) rather
	// than relying on LastInsertId (MySQL, SQLite).
	UseReturning() bool

	// ReturningClause returns the RETURNING clause appended to INSERT
	// statements. Returns an empty string for dialects that do not
	// use RETURNING.
	ReturningClause(pk string) string
}

// MySQL is the Dialect for MySQL / MariaDB.
var MySQL Dialect = mysqlDialect{}

// PostgreSQL is the Dialect for PostgreSQL.
var PostgreSQL Dialect = postgresDialect{}

// SQLite is the Dialect for SQLite 3.
var SQLite Dialect = sqliteDialect{}

// DialectFor maps a database/sql driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "postgres", "pgx":
		return PostgreSQL, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	}
	return nil, fmt.Errorf("orm: unsupported driver %q", driver)
}

// Rebind converts "?" placeholders in query to the dialect's bind style.
func Rebind(d Dialect, query string) string {
	return sqlx.Rebind(d.BindType(), query)
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string                    { return "mysql" }
func (mysqlDialect) BindType() int                   { return sqlx.QUESTION }
func (mysqlDialect) UseReturning() bool              { return false }
func (mysqlDialect) ReturningClause(_ string) string { return "" }

func (mysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) QuoteLiteral(v any) string {
	return literal(v, mysqlEscape)
}

func (mysqlDialect) Like(column, pattern string, caseSensitive bool) (string, any) {
	if caseSensitive {
		return column + " LIKE BINARY ?", pattern
	}
	return column + " LIKE ?", pattern
}

// mysqlEscaper mirrors mysql_real_escape_string for the default
// (backslash-escaping) SQL mode.
var mysqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	"'", `\'`,
	`"`, `\"`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

func mysqlEscape(s string) string {
	return "'" + mysqlEscaper.Replace(s) + "'"
}

type postgresDialect struct{}

func (postgresDialect) Name() string                     { return "postgres" }
func (postgresDialect) BindType() int                    { return sqlx.DOLLAR }
func (postgresDialect) QuoteIdent(name string) string    { return pq.QuoteIdentifier(name) }
func (postgresDialect) UseReturning() bool               { return true }
func (postgresDialect) ReturningClause(pk string) string { return " RETURNING " + pq.QuoteIdentifier(pk) }

func (postgresDialect) QuoteLiteral(v any) string {
	return literal(v, pq.QuoteLiteral)
}

func (postgresDialect) Like(column, pattern string, caseSensitive bool) (string, any) {
	if caseSensitive {
		return column + " LIKE ?", pattern
	}
	return column + " ILIKE ?", pattern
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string                    { return "sqlite3" }
func (sqliteDialect) BindType() int                   { return sqlx.QUESTION }
func (sqliteDialect) UseReturning() bool              { return false }
func (sqliteDialect) ReturningClause(_ string) string { return "" }

func (sqliteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) QuoteLiteral(v any) string {
	return literal(v, func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	})
}

// SQLite's LIKE folds ASCII case on every connection that has not set
// PRAGMA case_sensitive_like, so case-sensitive matches use GLOB.
func (sqliteDialect) Like(column, pattern string, caseSensitive bool) (string, any) {
	if caseSensitive {
		return column + " GLOB ?", globPattern(pattern)
	}
	return "LOWER(" + column + ") LIKE LOWER(?)", pattern
}

// globPattern translates a LIKE pattern to GLOB syntax. GLOB
// metacharacters in the pattern are matched literally.
func globPattern(pattern string) string {
	var sb strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteByte('*')
		case '_':
			sb.WriteByte('?')
		case '*', '?', '[':
			sb.WriteByte('[')
			sb.WriteRune(r)
			sb.WriteByte(']')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

const timeLayout = "2006-01-02 15:04:05.999999"

func literal(v any, quote func(string) string) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return quote(x)
	case []byte:
		return quote(string(x))
	case time.Time:
		return quote(x.UTC().Format(timeLayout))
	case *time.Time:
		if x == nil {
			return "NULL"
		}
		return quote(x.UTC().Format(timeLayout))
	default:
		return quote(fmt.Sprint(x))
	}
}

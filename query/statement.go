package query

import (
	"strings"

	"github.com/mickamy/ramster/orm"
)

// Statement is SQL with "?" placeholders and its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Rebind returns the SQL in the dialect's placeholder style.
func (s Statement) Rebind(d orm.Dialect) string {
	return orm.Rebind(d, s.SQL)
}

// Interpolate inlines every argument as an escaped literal. Both "?" and
// rebound "$n" placeholders are replaced. The result is meant for logs
// and EXPLAIN output, never for execution.
func (s Statement) Interpolate(d orm.Dialect) string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	var sb strings.Builder
	sb.Grow(len(s.SQL) + 8*len(s.Args))

	next := 0
	sql := s.SQL
	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; {
		case c == '?' && next < len(s.Args):
			sb.WriteString(d.QuoteLiteral(s.Args[next]))
			next++
		case c == '$' && i+1 < len(sql) && isDigit(sql[i+1]):
			j, n := i+1, 0
			for j < len(sql) && isDigit(sql[j]) {
				n = n*10 + int(sql[j]-'0')
				j++
			}
			if n < 1 || n > len(s.Args) {
				sb.WriteString(sql[i:j])
			} else {
				sb.WriteString(d.QuoteLiteral(s.Args[n-1]))
			}
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

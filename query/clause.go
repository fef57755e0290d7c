package query

import (
	"strings"

	"github.com/mickamy/ramster/filter"
	"github.com/mickamy/ramster/orm"
)

var compareOps = map[filter.Op]string{
	filter.GT:  ">",
	filter.GTE: ">=",
	filter.LT:  "<",
	filter.LTE: "<=",
}

// Clause renders the SQL condition for field on table (unqualified when
// table is empty). Values are returned as bind arguments for "?"
// placeholders; identifiers go through the dialect's quoting. An empty
// string means the value produces no condition.
func Clause(d orm.Dialect, table, field string, v filter.Value) (string, []any) {
	return clause(d, column(d, table, field), v)
}

func clause(d orm.Dialect, col string, v filter.Value) (string, []any) {
	switch x := v.(type) {
	case filter.Scalar:
		if x.V == nil {
			return col + " IS NULL", nil
		}
		return col + " = ?", []any{x.V}

	case filter.Like:
		sql, arg := d.Like(col, x.Pattern, x.CaseSensitive)
		return sql, []any{arg}

	case filter.Compare:
		op, ok := compareOps[x.Op]
		if !ok || x.V == nil {
			return "", nil
		}
		return col + " " + op + " ?", []any{x.V}

	case filter.Not:
		if x.V == nil {
			return col + " IS NOT NULL", nil
		}
		return col + " != ?", []any{x.V}

	case filter.NotIn:
		if len(x) == 0 {
			return "", nil
		}
		return col + " NOT IN (" + placeholders(len(x)) + ")", append([]any(nil), x...)

	case filter.In:
		if len(x) == 0 {
			return "1 = 0", nil
		}
		return col + " IN (" + placeholders(len(x)) + ")", append([]any(nil), x...)

	case filter.And:
		var parts []string
		var args []any
		for _, el := range x {
			sql, a := clause(d, col, el)
			if sql == "" {
				continue
			}
			parts = append(parts, sql)
			args = append(args, a...)
		}
		switch len(parts) {
		case 0:
			return "", nil
		case 1:
			return parts[0], args
		}
		return "(" + strings.Join(parts, " AND ") + ")", args

	case filter.FieldRef:
		return col + " = " + column(d, x.TableAlias, x.Field), nil
	}
	return "", nil
}

func column(d orm.Dialect, table, field string) string {
	if table == "" {
		return d.QuoteIdent(field)
	}
	return d.QuoteIdent(table) + "." + d.QuoteIdent(field)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

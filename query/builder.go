// Package query turns an interpreted search into SQL: the select list,
// the join tree, root conditions, ordering and pagination, plus the
// reshaping of flat joined rows back into nested records.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mickamy/ramster/filter"
	"github.com/mickamy/ramster/orm"
	"github.com/mickamy/ramster/schema"
	"github.com/mickamy/ramster/scope"
)

// Request describes one read.
type Request struct {
	Entity  *schema.Entity
	Dialect orm.Dialect

	// Where holds root-table conditions.
	Where    []filter.Condition
	Includes filter.Includes

	// Fields restricts the root columns; nil selects all.
	Fields         []string
	OrderBy        string
	OrderDirection string

	// Limit of 0 reads every matching row.
	Limit  int
	Offset int

	// Scopes run after the entity's own scopes.
	Scopes scope.Scopes
}

// Plan is a built read. It is immutable and safe for concurrent use.
type Plan struct {
	d     orm.Dialect
	pk    string
	from  string
	alias string

	selects    []string
	joins      []fragment
	countJoins []fragment
	where      []fragment
	order      []string
	sortKey    string
	sortDir    string

	limit  int
	offset int
	window bool

	tree *node
}

type fragment struct {
	sql  string
	args []any
}

// ErrInvalidOrder is returned by Build when OrderBy names a relation
// path that is not joined.
var ErrInvalidOrder = errors.New("query: invalid order")

// Build assembles the plan for req.
func Build(req Request) (*Plan, error) {
	b := &builder{
		d:     req.Dialect,
		e:     req.Entity,
		alias: req.Entity.Table,
		allow: req.Fields,
	}
	req.Entity.Scopes.Apply(b)
	req.Scopes.Apply(b)
	if req.Limit > 0 {
		b.limit = req.Limit
	}
	if req.Offset > 0 {
		b.offset = req.Offset
	}
	return b.plan(req)
}

// builder collects scope fragments for the root table.
type builder struct {
	d     orm.Dialect
	e     *schema.Entity
	alias string
	allow []string

	scopeWhere []fragment
	scopeOrder []string
	limit      int
	offset     int

	// paths maps the result path of every joined model node to its alias.
	paths map[string]string
}

var _ scope.Applier = (*builder)(nil)

func (b *builder) ApplyWhere(clause string, args []any) {
	if clause == "" {
		return
	}
	b.scopeWhere = append(b.scopeWhere, fragment{clause, args})
}

func (b *builder) ApplyOrderBy(clause string) {
	b.scopeOrder = append(b.scopeOrder, clause)
}

func (b *builder) ApplyLimit(n int)                { b.limit = n }
func (b *builder) ApplyOffset(n int)               { b.offset = n }
func (b *builder) ApplyAttributes(columns []string) { b.allow = columns }

func (b *builder) col(alias, field string) string {
	return column(b.d, alias, field)
}

func (b *builder) plan(req Request) (*Plan, error) {
	p := &Plan{
		d:      b.d,
		pk:     b.e.PrimaryKey,
		alias:  b.alias,
		from:   b.d.QuoteIdent(b.e.Table) + " AS " + b.d.QuoteIdent(b.alias),
		limit:  b.limit,
		offset: b.offset,
	}

	p.tree = &node{pk: b.e.PrimaryKey, columns: b.e.SelectColumns(b.allow)}
	for _, c := range p.tree.columns {
		p.selects = append(p.selects, b.col(b.alias, c))
	}

	var order []string
	for _, inc := range req.Includes.Include {
		b.join(p, inc, b.alias, p.tree, &order)
	}
	for _, inc := range req.Includes.Count {
		b.countJoin(p, inc, b.alias)
	}

	p.where = append(p.where, fragment{sql: b.col(b.alias, schema.DeletedAt) + " IS NULL"})
	for _, c := range req.Where {
		if sql, args := Clause(b.d, b.alias, c.Field, c.Value); sql != "" {
			p.where = append(p.where, fragment{sql, args})
		}
	}
	p.where = append(p.where, b.scopeWhere...)

	key, dir, err := b.mainOrder(req.OrderBy, req.OrderDirection)
	if err != nil {
		return nil, err
	}
	if key != "" {
		p.order = append(p.order, key+" "+dir)
		p.sortKey, p.sortDir = key, dir
	}
	p.order = append(p.order, order...)
	p.order = append(p.order, b.scopeOrder...)

	p.window = p.limit > 0 && p.tree.fansOut()
	return p, nil
}

// join appends the join for inc, its select columns and its static
// order, then recurses into nested relations.
func (b *builder) join(p *Plan, inc *filter.Include, parentAlias string, parent *node, order *[]string) {
	rel := inc.Relation
	alias := childAlias(b.alias, parentAlias, rel.AliasBase)
	p.joins = append(p.joins, b.joinClause(inc, parentAlias, alias))

	if !rel.HasModel {
		for _, in := range inc.Inner {
			b.join(p, in, alias, parent, order)
		}
		return
	}

	n := &node{
		name:     rel.Name,
		path:     parent.childPath(rel.Name),
		pk:       rel.Target.PrimaryKey,
		columns:  rel.Target.SelectColumns(rel.Attributes),
		multiple: rel.Multiple,
	}
	parent.children = append(parent.children, n)
	if b.paths == nil {
		b.paths = map[string]string{}
	}
	b.paths[n.path] = alias
	for _, c := range n.columns {
		p.selects = append(p.selects, b.col(alias, c)+" AS "+b.d.QuoteIdent(n.label(c)))
	}
	for _, o := range inc.Order {
		*order = append(*order, b.col(alias, o.Field)+" "+direction(o.Direction, "ASC"))
	}
	for _, in := range inc.Inner {
		b.join(p, in, alias, n, order)
	}
}

// countJoin appends only filtered relations; they restrict the root set
// without selecting anything.
func (b *builder) countJoin(p *Plan, inc *filter.Include, parentAlias string) {
	if !inc.Filtered() {
		return
	}
	alias := childAlias(b.alias, parentAlias, inc.Relation.AliasBase)
	p.countJoins = append(p.countJoins, b.joinClause(inc, parentAlias, alias))
	for _, in := range inc.Inner {
		b.countJoin(p, in, alias)
	}
}

func (b *builder) joinClause(inc *filter.Include, parentAlias, alias string) fragment {
	rel := inc.Relation
	kind := "LEFT JOIN"
	if inc.Filtered() {
		kind = "INNER JOIN"
	}

	var sb strings.Builder
	sb.WriteString(kind)
	sb.WriteString(" ")
	sb.WriteString(b.d.QuoteIdent(rel.Table))
	sb.WriteString(" AS ")
	sb.WriteString(b.d.QuoteIdent(alias))
	sb.WriteString(" ON ")
	sb.WriteString(b.col(alias, rel.TargetKey))
	sb.WriteString(" = ")
	sb.WriteString(b.col(parentAlias, rel.ModelKey))
	if rel.HasModel {
		sb.WriteString(" AND ")
		sb.WriteString(b.col(alias, schema.DeletedAt))
		sb.WriteString(" IS NULL")
	}

	var args []any
	for _, c := range inc.Conditions {
		sql, a := Clause(b.d, alias, c.Field, c.Value)
		if sql == "" {
			continue
		}
		sb.WriteString(" AND ")
		sb.WriteString(sql)
		args = append(args, a...)
	}
	return fragment{sb.String(), args}
}

// mainOrder resolves the caller's ORDER BY entry to a sort expression
// and direction. A dotted name orders by a column of a joined relation,
// addressed by its result path ("userType.accessPoints.name").
func (b *builder) mainOrder(orderBy, dir string) (string, string, error) {
	orderBy = orderStripper.Replace(strings.TrimSpace(orderBy))
	if orderBy == "" {
		return "", "", nil
	}
	alias, field := b.alias, orderBy
	if i := strings.LastIndexByte(orderBy, '.'); i >= 0 {
		path := orderBy[:i]
		field = orderBy[i+1:]
		a, ok := b.paths[path]
		if !ok || field == "" {
			return "", "", fmt.Errorf("%w: %q is not a joined relation column", ErrInvalidOrder, orderBy)
		}
		alias = a
	}
	return b.col(alias, field), direction(dir, "DESC"), nil
}

var orderStripper = strings.NewReplacer("`", "", `"`, "", "'", "", "?", "", ";", "")

func direction(dir, fallback string) string {
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	return fallback
}

// childAlias prefixes nested aliases with their parent's alias so the
// same table can be joined along several paths.
func childAlias(root, parent, base string) string {
	if parent == root {
		return base
	}
	return parent + "_" + base
}

// Full returns the row query.
func (p *Plan) Full() Statement {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(p.selects, ", "))
	args = p.writeBody(&sb, args, p.joins)

	if p.window {
		sb.WriteString(" AND ")
		sb.WriteString(column(p.d, p.alias, p.pk))
		sb.WriteString(" IN (SELECT ")
		sb.WriteString(p.d.QuoteIdent(pageKey))
		sb.WriteString(" FROM (")
		args = p.writePage(&sb, args)
		sb.WriteString(") AS ")
		sb.WriteString(p.d.QuoteIdent("page"))
		sb.WriteString(")")
	}

	if len(p.order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(p.order, ", "))
	}
	if !p.window {
		p.writeLimit(&sb)
	}
	return Statement{SQL: sb.String(), Args: args}
}

// Count returns the query counting distinct root rows.
func (p *Plan) Count() Statement {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(DISTINCT ")
	sb.WriteString(column(p.d, p.alias, p.pk))
	sb.WriteString(") AS ")
	sb.WriteString(p.d.QuoteIdent("count"))
	args := p.writeBody(&sb, nil, p.countJoins)
	return Statement{SQL: sb.String(), Args: args}
}

const (
	pageKey  = "pageKey"
	pageSort = "pageSort"
)

// writePage renders the derived table holding one window of root ids.
// Each root takes one slot however many joined rows it has; it sorts by
// the smallest (ASC) or largest (DESC) of its sort values, which is the
// position its first row takes in the outer ordering.
func (p *Plan) writePage(sb *strings.Builder, args []any) []any {
	pk := column(p.d, p.alias, p.pk)
	sort := pk
	sb.WriteString("SELECT ")
	sb.WriteString(pk)
	sb.WriteString(" AS ")
	sb.WriteString(p.d.QuoteIdent(pageKey))
	if p.sortKey != "" && p.sortKey != pk {
		agg := "MIN"
		if p.sortDir == "DESC" {
			agg = "MAX"
		}
		sort = p.d.QuoteIdent(pageSort)
		sb.WriteString(", " + agg + "(")
		sb.WriteString(p.sortKey)
		sb.WriteString(") AS ")
		sb.WriteString(sort)
	}
	args = p.writeBody(sb, args, p.joins)
	sb.WriteString(" GROUP BY ")
	sb.WriteString(pk)
	if p.sortKey != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(sort + " " + p.sortDir)
	}
	p.writeLimit(sb)
	return args
}

func (p *Plan) writeBody(sb *strings.Builder, args []any, joins []fragment) []any {
	sb.WriteString(" FROM ")
	sb.WriteString(p.from)
	for _, j := range joins {
		sb.WriteString(" ")
		sb.WriteString(j.sql)
		args = append(args, j.args...)
	}
	sb.WriteString(" WHERE ")
	for i, w := range p.where {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		if len(p.where) > 1 && strings.Contains(w.sql, " OR ") {
			sb.WriteString("(" + w.sql + ")")
		} else {
			sb.WriteString(w.sql)
		}
		args = append(args, w.args...)
	}
	return args
}

func (p *Plan) writeLimit(sb *strings.Builder) {
	if p.limit <= 0 {
		return
	}
	fmt.Fprintf(sb, " LIMIT %d", p.limit)
	if p.offset > 0 {
		fmt.Fprintf(sb, " OFFSET %d", p.offset)
	}
}

// Windowed reports whether pagination applies to distinct root rows
// through a subquery because a one-to-many relation is joined.
func (p *Plan) Windowed() bool { return p.window }

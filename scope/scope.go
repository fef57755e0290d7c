package scope

// Applier is implemented by query builders to receive scope fragments.
// It lives in the scope package so that scopes can be declared on
// entity descriptors without importing the query builder.
type Applier interface {
	ApplyWhere(clause string, args []any)
	ApplyOrderBy(clause string)
	ApplyLimit(n int)
	ApplyOffset(n int)
	ApplyAttributes(columns []string)
}

type scopeKind int

const (
	kindWhere scopeKind = iota
	kindOrderBy
	kindLimit
	kindOffset
	kindAttributes
)

// Scope represents a single query fragment.
// Scopes are immutable and safe to reuse across queries.
type Scope struct {
	kind    scopeKind
	clause  string
	args    []any
	n       int
	columns []string
}

// Apply dispatches this Scope to the given Applier.
func (s Scope) Apply(a Applier) {
	switch s.kind {
	case kindWhere:
		a.ApplyWhere(s.clause, append([]any(nil), s.args...))
	case kindOrderBy:
		a.ApplyOrderBy(s.clause)
	case kindLimit:
		a.ApplyLimit(s.n)
	case kindOffset:
		a.ApplyOffset(s.n)
	case kindAttributes:
		a.ApplyAttributes(append([]string(nil), s.columns...))
	}
}

// Where returns a Scope that adds a WHERE clause fragment. Column
// references inside clause are written as the caller wants them to
// appear in SQL, typically qualified by the root table alias.
//
//	scope.Where(`"userType"."status" = ?`, true)
func Where(clause string, args ...any) Scope {
	return Scope{kind: kindWhere, clause: clause, args: args}
}

// OrderBy returns a Scope that appends an ORDER BY fragment.
//
//	scope.OrderBy(`"userType"."name" ASC`)
func OrderBy(clause string) Scope {
	return Scope{kind: kindOrderBy, clause: clause}
}

// Limit returns a Scope that sets the LIMIT.
func Limit(n int) Scope {
	return Scope{kind: kindLimit, n: n}
}

// Offset returns a Scope that sets the OFFSET.
func Offset(n int) Scope {
	return Scope{kind: kindOffset, n: n}
}

// Attributes returns a Scope that restricts the selected columns of the
// root entity to the given allowlist.
//
//	scope.Attributes("id", "name")
func Attributes(columns ...string) Scope {
	return Scope{kind: kindAttributes, columns: columns}
}

// Scopes is a named slice of Scope, useful for conditionally building
// up a set of scopes.
//
//	var s scope.Scopes
//	if onlyActive {
//	    s = s.Append(Active)
//	}
type Scopes []Scope

// Append adds scopes and returns a new Scopes. The receiver is not modified.
func (ss Scopes) Append(scopes ...Scope) Scopes {
	return append(append(Scopes(nil), ss...), scopes...)
}

// Merge concatenates two Scopes and returns a new Scopes.
// Neither receiver nor argument is modified.
func (ss Scopes) Merge(other Scopes) Scopes {
	return append(append(Scopes(nil), ss...), other...)
}

// Apply dispatches every scope in order.
func (ss Scopes) Apply(a Applier) {
	for _, s := range ss {
		s.Apply(a)
	}
}

// Combine creates a Scopes from the given scopes.
//
//	scope.Combine(scope.Limit(10), scope.Offset(20))
func Combine(scopes ...Scope) Scopes {
	return Scopes(scopes)
}

// Package schema holds entity descriptors and the relation graph derived
// from their associations. Descriptors are registered once at startup;
// after Registry.Build they are read-only and shared by every query.
package schema

import (
	"slices"

	"github.com/mickamy/ramster/scope"
)

// Timestamp columns carried by every table.
const (
	CreatedAt = "createdAt"
	UpdatedAt = "updatedAt"
	DeletedAt = "deletedAt"
)

// AssociationType is the kind of link between two entities.
type AssociationType string

const (
	BelongsTo     AssociationType = "belongsTo"
	HasOne        AssociationType = "hasOne"
	HasMany       AssociationType = "hasMany"
	BelongsToMany AssociationType = "belongsToMany"
)

// Column is a table column. Virtual columns are computed by the
// application and are never selected or written.
type Column struct {
	Name    string `json:"name"`
	Virtual bool   `json:"virtual,omitempty"`
}

// SearchField declares a filterable field.
type SearchField struct {
	// Field is the filter key and, unless AssociatedModelField is set,
	// the column name.
	Field string `json:"field"`
	// Like is a two-character wildcard pattern: a leading '%' matches any
	// prefix, a trailing '%' any suffix ("-%" = starts with).
	Like string `json:"like,omitempty"`
	// Between names the suffixes of the two companion bound filters,
	// e.g. ["From", "To"] reads createdAtFrom and createdAtTo.
	Between []string `json:"between,omitempty"`
	// AssociatedModel is the association whose table holds the column.
	AssociatedModel      string `json:"associatedModel,omitempty"`
	AssociatedModelField string `json:"associatedModelField,omitempty"`
	// NestedInclude is an inner association of AssociatedModel one
	// level deeper.
	NestedInclude string `json:"nestedInclude,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
}

// Column returns the column the field filters on.
func (f SearchField) Column() string {
	if f.AssociatedModelField != "" {
		return f.AssociatedModelField
	}
	return f.Field
}

// OrderItem is a static ORDER BY entry attached to an association.
type OrderItem struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

// Association declares a relation from one entity to another.
type Association struct {
	Name       string          `json:"name"`
	Type       AssociationType `json:"type"`
	Component  string          `json:"componentName"`
	ForeignKey string          `json:"foreignKey,omitempty"`
	OtherKey   string          `json:"otherKey,omitempty"`
	SourceKey  string          `json:"sourceKey,omitempty"`
	Through    string          `json:"through,omitempty"`
	Alias      string          `json:"alias,omitempty"`
	Attributes []string        `json:"attributes,omitempty"`
	Where      map[string]any  `json:"where,omitempty"`
	Order      []OrderItem     `json:"order,omitempty"`
	// Nested lists associations of the target entity joined together
	// with this one.
	Nested []string `json:"nested,omitempty"`
}

// Defaults are the readList parameters used when a request omits them.
type Defaults struct {
	OrderBy        string `json:"orderBy,omitempty"`
	OrderDirection string `json:"orderDirection,omitempty"`
	Page           int    `json:"page,omitempty"`
	PerPage        int    `json:"perPage,omitempty"`
}

// Entity is a table-backed component descriptor.
type Entity struct {
	Name         string        `json:"name"`
	Table        string        `json:"table,omitempty"`
	PrimaryKey   string        `json:"primaryKey,omitempty"`
	Columns      []Column      `json:"columns"`
	SearchFields []SearchField `json:"searchFields,omitempty"`
	Associations []Association `json:"associations,omitempty"`
	Defaults     Defaults      `json:"defaults,omitzero"`

	// Scopes are applied to every read of the entity.
	Scopes scope.Scopes `json:"-"`

	relations []*Relation
}

// Relations returns the resolved relation graph in declaration order.
// It is empty until the owning Registry is built.
func (e *Entity) Relations() []*Relation { return e.relations }

// Relation returns the resolved relation with the given name.
func (e *Entity) Relation(name string) (*Relation, bool) {
	for _, r := range e.relations {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Association returns the declared association with the given name.
func (e *Entity) Association(name string) (Association, bool) {
	for _, a := range e.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}

// StoredColumns returns the names of every non-virtual column in
// declaration order.
func (e *Entity) StoredColumns() []string {
	cols := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		if !c.Virtual {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// HasColumn reports whether name is a stored column.
func (e *Entity) HasColumn(name string) bool {
	return slices.Contains(e.StoredColumns(), name)
}

// SelectColumns returns the stored columns restricted to allow, keeping
// the primary key. A nil allowlist selects every stored column.
func (e *Entity) SelectColumns(allow []string) []string {
	cols := e.StoredColumns()
	if allow == nil {
		return cols
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == e.PrimaryKey || slices.Contains(allow, c) {
			out = append(out, c)
		}
	}
	return out
}

// Relation is a resolved join edge. Nodes with HasModel false are
// bridge tables that only connect a parent to their Inner model node.
type Relation struct {
	Name      string
	AliasBase string
	Table     string
	// TargetKey is the column on Table joined against ModelKey on the
	// parent.
	TargetKey  string
	ModelKey   string
	Multiple   bool
	HasModel   bool
	Target     *Entity
	Attributes []string
	Where      map[string]any
	Order      []OrderItem
	Inner      []*Relation
}

// Model returns the node that carries the target entity's columns:
// the relation itself, or the inner node of a bridge.
func (r *Relation) Model() *Relation {
	if r.HasModel || len(r.Inner) == 0 {
		return r
	}
	return r.Inner[0]
}

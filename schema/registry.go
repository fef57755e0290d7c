package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mickamy/ramster/internal/naming"
)

var (
	// ErrUnknownEntity is returned when a component name is not registered.
	ErrUnknownEntity = errors.New("schema: unknown entity")

	// ErrInvalidEntity wraps every descriptor validation failure.
	ErrInvalidEntity = errors.New("schema: invalid entity")
)

// Registry is the validated set of entities and their relation graphs.
// It is immutable once New returns and safe for concurrent use.
type Registry struct {
	entities map[string]*Entity
	order    []string
}

// New registers entities, fills descriptor defaults and resolves every
// association into a relation graph. Unknown targets, nested cycles and
// ambiguous aliases are reported before any query can run.
func New(entities ...Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity, len(entities))}
	for i := range entities {
		e := entities[i]
		if !naming.ValidIdent(e.Name) {
			return nil, fmt.Errorf("%w: invalid name %q", ErrInvalidEntity, e.Name)
		}
		if _, dup := r.entities[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entity %q", ErrInvalidEntity, e.Name)
		}
		normalize(&e)
		r.entities[e.Name] = &e
		r.order = append(r.order, e.Name)
	}

	for _, name := range r.order {
		if err := r.validate(r.entities[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range r.order {
		e := r.entities[name]
		rels := make([]*Relation, 0, len(e.Associations))
		for _, a := range e.Associations {
			rel, err := r.resolve(e, a, []string{e.Name + "." + a.Name})
			if err != nil {
				return nil, err
			}
			rels = append(rels, rel)
		}
		if err := checkAliases(e.Table, rels); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidEntity, e.Name, err)
		}
		e.relations = rels
	}
	return r, nil
}

// Entity returns the registered entity with the given name.
func (r *Registry) Entity(name string) (*Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return e, nil
}

// Entities returns every entity in registration order.
func (r *Registry) Entities() []*Entity {
	out := make([]*Entity, len(r.order))
	for i, name := range r.order {
		out[i] = r.entities[name]
	}
	return out
}

func normalize(e *Entity) {
	if e.Table == "" {
		e.Table = e.Name
	}
	if e.PrimaryKey == "" {
		e.PrimaryKey = "id"
	}
	e.Columns = append([]Column(nil), e.Columns...)
	if !hasColumn(e.Columns, e.PrimaryKey) {
		e.Columns = append([]Column{{Name: e.PrimaryKey}}, e.Columns...)
	}
	for _, ts := range []string{CreatedAt, UpdatedAt, DeletedAt} {
		if !hasColumn(e.Columns, ts) {
			e.Columns = append(e.Columns, Column{Name: ts})
		}
	}
	if e.Defaults.OrderBy == "" {
		e.Defaults.OrderBy = e.PrimaryKey
	}
	if e.Defaults.OrderDirection == "" {
		e.Defaults.OrderDirection = "DESC"
	}
	if e.Defaults.Page < 1 {
		e.Defaults.Page = 1
	}
	if e.Defaults.PerPage < 1 {
		e.Defaults.PerPage = 10
	}
}

func hasColumn(cols []Column, name string) bool {
	return slices.ContainsFunc(cols, func(c Column) bool { return c.Name == name })
}

func (r *Registry) validate(e *Entity) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidEntity, e.Name, fmt.Sprintf(format, args...))
	}

	for _, c := range e.Columns {
		if !naming.ValidIdent(c.Name) {
			return fail("invalid column name %q", c.Name)
		}
	}

	seen := make(map[string]bool, len(e.Associations))
	for _, a := range e.Associations {
		if !naming.ValidIdent(a.Name) {
			return fail("invalid association name %q", a.Name)
		}
		if seen[a.Name] {
			return fail("duplicate association %q", a.Name)
		}
		seen[a.Name] = true
		if _, ok := r.entities[a.Component]; !ok {
			return fail("association %q: %v %q", a.Name, ErrUnknownEntity, a.Component)
		}
		switch a.Type {
		case BelongsTo, HasOne, HasMany:
		case BelongsToMany:
			if a.Through == "" {
				return fail("association %q: belongsToMany requires through", a.Name)
			}
		default:
			return fail("association %q: unknown type %q", a.Name, a.Type)
		}
		if a.Alias != "" && !naming.ValidIdent(a.Alias) {
			return fail("association %q: invalid alias %q", a.Name, a.Alias)
		}
	}

	for _, f := range e.SearchFields {
		if !naming.ValidIdent(f.Field) {
			return fail("invalid search field %q", f.Field)
		}
		if f.Like != "" && !validLike(f.Like) {
			return fail("search field %q: invalid like pattern %q", f.Field, f.Like)
		}
		if f.Between != nil && len(f.Between) != 2 {
			return fail("search field %q: between needs two suffixes", f.Field)
		}
		if f.AssociatedModel == "" {
			if f.NestedInclude != "" {
				return fail("search field %q: nestedInclude without associatedModel", f.Field)
			}
			continue
		}
		a, ok := e.Association(f.AssociatedModel)
		if !ok {
			return fail("search field %q: unknown association %q", f.Field, f.AssociatedModel)
		}
		if f.NestedInclude != "" && !slices.Contains(a.Nested, f.NestedInclude) {
			return fail("search field %q: %q is not nested under %q", f.Field, f.NestedInclude, a.Name)
		}
	}
	return nil
}

func validLike(pattern string) bool {
	if len(pattern) != 2 {
		return false
	}
	for _, c := range pattern {
		if c != '%' && c != '-' {
			return false
		}
	}
	return true
}

// resolve turns one association into its relation node, expanding
// nested associations. stack holds the entity.association keys on the
// current expansion path.
func (r *Registry) resolve(src *Entity, a Association, stack []string) (*Relation, error) {
	target := r.entities[a.Component]

	model := &Relation{
		Name:       a.Name,
		AliasBase:  aliasBase(a.Alias, target.Table),
		Table:      target.Table,
		HasModel:   true,
		Target:     target,
		Attributes: a.Attributes,
		Where:      a.Where,
		Order:      a.Order,
	}

	var node *Relation
	switch a.Type {
	case BelongsTo:
		model.TargetKey = orDefault(a.OtherKey, target.PrimaryKey)
		model.ModelKey = orDefault(a.ForeignKey, naming.ForeignKey(a.Name))
		node = model
	case HasOne, HasMany:
		model.TargetKey = orDefault(a.ForeignKey, naming.ForeignKey(src.Name))
		model.ModelKey = orDefault(a.SourceKey, src.PrimaryKey)
		model.Multiple = a.Type == HasMany
		node = model
	case BelongsToMany:
		model.TargetKey = target.PrimaryKey
		model.ModelKey = orDefault(a.OtherKey, naming.ForeignKey(target.Name))
		model.Multiple = true
		node = &Relation{
			Name:      a.Name,
			AliasBase: a.Through,
			Table:     a.Through,
			TargetKey: orDefault(a.ForeignKey, naming.ForeignKey(src.Name)),
			ModelKey:  orDefault(a.SourceKey, src.PrimaryKey),
			Multiple:  true,
			Inner:     []*Relation{model},
		}
	}

	for _, name := range a.Nested {
		na, ok := target.Association(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s: association %q: unknown nested association %q",
				ErrInvalidEntity, src.Name, a.Name, name)
		}
		key := target.Name + "." + name
		if slices.Contains(stack, key) {
			return nil, fmt.Errorf("%w: nested association cycle %s -> %s",
				ErrInvalidEntity, strings.Join(stack, " -> "), key)
		}
		child, err := r.resolve(target, na, append(slices.Clone(stack), key))
		if err != nil {
			return nil, err
		}
		model.Inner = append(model.Inner, child)
	}
	if err := checkAliases("", model.Inner); err != nil {
		return nil, fmt.Errorf("%w: %s: association %q: %w", ErrInvalidEntity, src.Name, a.Name, err)
	}
	return node, nil
}

// checkAliases rejects sibling relations that would share a SQL alias.
func checkAliases(reserved string, rels []*Relation) error {
	seen := map[string]string{}
	if reserved != "" {
		seen[reserved] = "the root table"
	}
	for _, rel := range rels {
		if other, dup := seen[rel.AliasBase]; dup {
			return fmt.Errorf("alias %q of %q collides with %s; set an explicit alias", rel.AliasBase, rel.Name, other)
		}
		seen[rel.AliasBase] = fmt.Sprintf("%q", rel.Name)
	}
	return nil
}

func aliasBase(alias, table string) string {
	return orDefault(alias, table)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

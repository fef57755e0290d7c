// Package schematest provides a small entity graph shared by tests:
// userType has many users and belongs to many accessPoints through
// userTypeAccessPoints; users belong to a userType whose accessPoints
// are joined as a nested association.
package schematest

import "github.com/mickamy/ramster/schema"

// Entities returns fresh descriptors for the test graph.
func Entities() []schema.Entity {
	return []schema.Entity{
		{
			Name: "userType",
			Columns: []schema.Column{
				{Name: "id"},
				{Name: "name"},
				{Name: "description"},
				{Name: "status"},
			},
			SearchFields: []schema.SearchField{
				{Field: "id"},
				{Field: "name", Like: "-%"},
				{Field: "status"},
				{Field: "createdAt", Between: []string{"From", "To"}},
				{Field: "userEmail", AssociatedModel: "users", AssociatedModelField: "email", Like: "%%"},
				{Field: "accessPointName", AssociatedModel: "accessPoints", AssociatedModelField: "name"},
			},
			Associations: []schema.Association{
				{Name: "users", Type: schema.HasMany, Component: "users", Attributes: []string{"email", "firstName"}},
				{
					Name:      "accessPoints",
					Type:      schema.BelongsToMany,
					Component: "accessPoints",
					Through:   "userTypeAccessPoints",
					Order:     []schema.OrderItem{{Field: "name", Direction: "ASC"}},
				},
			},
		},
		{
			Name:  "users",
			Table: "users",
			Columns: []schema.Column{
				{Name: "id"},
				{Name: "email"},
				{Name: "firstName"},
				{Name: "lastName"},
				{Name: "userTypeId"},
				{Name: "fullName", Virtual: true},
			},
			SearchFields: []schema.SearchField{
				{Field: "id"},
				{Field: "email", Like: "%%"},
				{Field: "userTypeId"},
				{Field: "userTypeName", AssociatedModel: "userType", AssociatedModelField: "name", Like: "-%", CaseSensitive: true},
				{Field: "accessPointName", AssociatedModel: "userType", NestedInclude: "accessPoints", AssociatedModelField: "name"},
			},
			Associations: []schema.Association{
				{Name: "userType", Type: schema.BelongsTo, Component: "userType", Nested: []string{"accessPoints"}},
			},
			Defaults: schema.Defaults{OrderBy: "email", OrderDirection: "ASC", PerPage: 20},
		},
		{
			Name: "accessPoints",
			Columns: []schema.Column{
				{Name: "id"},
				{Name: "name"},
				{Name: "description"},
			},
			SearchFields: []schema.SearchField{
				{Field: "name", Like: "%%"},
			},
		},
	}
}

// Registry builds the test graph and panics on error.
func Registry() *schema.Registry {
	r, err := schema.New(Entities()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Entity returns a built entity of the test graph by name.
func Entity(name string) *schema.Entity {
	e, err := Registry().Entity(name)
	if err != nil {
		panic(err)
	}
	return e
}

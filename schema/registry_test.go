package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/ramster/schema"
	"github.com/mickamy/ramster/schema/schematest"
)

func TestNewFillsDefaults(t *testing.T) {
	t.Parallel()

	r := schematest.Registry()
	ut, err := r.Entity("userType")
	require.NoError(t, err)

	assert.Equal(t, "userType", ut.Table)
	assert.Equal(t, "id", ut.PrimaryKey)
	assert.Equal(t, schema.Defaults{OrderBy: "id", OrderDirection: "DESC", Page: 1, PerPage: 10}, ut.Defaults)
	assert.Equal(t,
		[]string{"id", "name", "description", "status", "createdAt", "updatedAt", "deletedAt"},
		ut.StoredColumns())

	users, err := r.Entity("users")
	require.NoError(t, err)
	assert.Equal(t, schema.Defaults{OrderBy: "email", OrderDirection: "ASC", Page: 1, PerPage: 20}, users.Defaults)
	assert.NotContains(t, users.StoredColumns(), "fullName")
}

func TestUnknownEntity(t *testing.T) {
	t.Parallel()

	_, err := schematest.Registry().Entity("nope")
	require.ErrorIs(t, err, schema.ErrUnknownEntity)
}

func TestRelationGraph(t *testing.T) {
	t.Parallel()

	r := schematest.Registry()
	ut, err := r.Entity("userType")
	require.NoError(t, err)

	rels := ut.Relations()
	require.Len(t, rels, 2)

	users := rels[0]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "users", users.Table)
	assert.Equal(t, "userTypeId", users.TargetKey)
	assert.Equal(t, "id", users.ModelKey)
	assert.True(t, users.Multiple)
	assert.True(t, users.HasModel)

	bridge := rels[1]
	assert.Equal(t, "accessPoints", bridge.Name)
	assert.False(t, bridge.HasModel)
	assert.Equal(t, "userTypeAccessPoints", bridge.Table)
	assert.Equal(t, "userTypeId", bridge.TargetKey)
	assert.Equal(t, "id", bridge.ModelKey)
	require.Len(t, bridge.Inner, 1)

	model := bridge.Model()
	assert.True(t, model.HasModel)
	assert.Equal(t, "accessPoints", model.Table)
	assert.Equal(t, "id", model.TargetKey)
	assert.Equal(t, "accessPointId", model.ModelKey)
	assert.True(t, model.Multiple)
}

func TestNestedRelation(t *testing.T) {
	t.Parallel()

	users, err := schematest.Registry().Entity("users")
	require.NoError(t, err)

	rel, ok := users.Relation("userType")
	require.True(t, ok)
	assert.False(t, rel.Multiple)
	assert.Equal(t, "id", rel.TargetKey)
	assert.Equal(t, "userTypeId", rel.ModelKey)

	require.Len(t, rel.Inner, 1)
	assert.Equal(t, "accessPoints", rel.Inner[0].Name)
	assert.False(t, rel.Inner[0].HasModel)
}

func TestNewRejectsInvalidDescriptors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(es []schema.Entity) []schema.Entity
	}{
		{"unknown component", func(es []schema.Entity) []schema.Entity {
			es[0].Associations[0].Component = "ghosts"
			return es
		}},
		{"duplicate entity", func(es []schema.Entity) []schema.Entity {
			return append(es, es[2])
		}},
		{"duplicate association", func(es []schema.Entity) []schema.Entity {
			es[0].Associations = append(es[0].Associations, es[0].Associations[0])
			return es
		}},
		{"belongsToMany without through", func(es []schema.Entity) []schema.Entity {
			es[0].Associations[1].Through = ""
			return es
		}},
		{"dotted name", func(es []schema.Entity) []schema.Entity {
			es[0].Associations[0].Name = "us.ers"
			return es
		}},
		{"search field on unknown association", func(es []schema.Entity) []schema.Entity {
			es[0].SearchFields[4].AssociatedModel = "ghosts"
			return es
		}},
		{"nested include not declared", func(es []schema.Entity) []schema.Entity {
			es[1].SearchFields[4].NestedInclude = "users"
			return es
		}},
		{"bad like pattern", func(es []schema.Entity) []schema.Entity {
			es[0].SearchFields[1].Like = "%x"
			return es
		}},
		{"alias collides with root", func(es []schema.Entity) []schema.Entity {
			es[0].Associations[0].Alias = "userType"
			return es
		}},
		{"nested cycle", func(es []schema.Entity) []schema.Entity {
			es[0].Associations[0].Nested = []string{"userType"}
			es[1].Associations[0].Nested = []string{"accessPoints", "users"}
			return es
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := schema.New(tt.mutate(schematest.Entities())...)
			require.ErrorIs(t, err, schema.ErrInvalidEntity)
		})
	}
}

func TestSelectColumns(t *testing.T) {
	t.Parallel()

	users, err := schematest.Registry().Entity("users")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "email"}, users.SelectColumns([]string{"email", "fullName"}))
	assert.Len(t, users.SelectColumns(nil), 8)
}

//go:build integration

package component_test

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/ramster/component"
	"github.com/mickamy/ramster/filter"
	"github.com/mickamy/ramster/orm"
	"github.com/mickamy/ramster/query"
	"github.com/mickamy/ramster/schema/schematest"
)

var sqliteTables = []string{
	`CREATE TABLE "userType" (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT, description TEXT, status BOOLEAN,
		"createdAt" DATETIME, "updatedAt" DATETIME, "deletedAt" DATETIME
	)`,
	`CREATE TABLE "users" (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT, "firstName" TEXT, "lastName" TEXT, "userTypeId" INTEGER,
		"createdAt" DATETIME, "updatedAt" DATETIME, "deletedAt" DATETIME
	)`,
	`CREATE TABLE "accessPoints" (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT, description TEXT,
		"createdAt" DATETIME, "updatedAt" DATETIME, "deletedAt" DATETIME
	)`,
	`CREATE TABLE "userTypeAccessPoints" ("userTypeId" INTEGER, "accessPointId" INTEGER)`,
}

func setupSQLite(t *testing.T) *component.Service {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, ddl := range sqliteTables {
		_, err := sqlDB.Exec(ddl)
		require.NoError(t, err)
	}
	return component.NewService(orm.New(sqlDB, orm.SQLite), schematest.Registry())
}

func seedUserTypes(t *testing.T, c *component.Component, n int) {
	t.Helper()

	recs := make([]query.Record, n)
	for i := range recs {
		recs[i] = query.Record{"name": fmt.Sprintf("type-%02d", i+1), "status": true}
	}
	created, err := c.BulkCreate(t.Context(), recs, component.BulkOptions{})
	require.NoError(t, err)
	require.Len(t, created, n)
}

func TestReadListPagingSQLite(t *testing.T) {
	svc := setupSQLite(t)
	c, err := svc.Component("userType")
	require.NoError(t, err)

	const n = 23
	seedUserTypes(t, c, n)

	for _, perPage := range []int{1, 5, 7, 23, 30} {
		t.Run(fmt.Sprintf("perPage=%d", perPage), func(t *testing.T) {
			wantPages := (n + perPage - 1) / perPage
			seen := map[any]bool{}

			for page := 1; page <= wantPages; page++ {
				got, err := c.ReadList(t.Context(), component.ListRequest{Page: page, PerPage: perPage})
				require.NoError(t, err)

				assert.Equal(t, wantPages, got.TotalPages)
				assert.Equal(t, n > page*perPage, got.More, "page %d", page)
				for _, r := range got.Results {
					seen[r["id"]] = true
				}
			}
			assert.Len(t, seen, n)

			last, err := c.ReadList(t.Context(), component.ListRequest{Page: wantPages, PerPage: perPage})
			require.NoError(t, err)
			beyond, err := c.ReadList(t.Context(), component.ListRequest{Page: wantPages + 3, PerPage: perPage})
			require.NoError(t, err)
			assert.Equal(t, wantPages, beyond.Page)
			assert.Equal(t, last.Results, beyond.Results)
		})
	}

	all, err := c.ReadList(t.Context(), component.ListRequest{Page: 3, PerPage: 2, ReadAll: true})
	require.NoError(t, err)
	assert.Equal(t, 1, all.TotalPages)
	assert.Len(t, all.Results, n)
	assert.False(t, all.More)
}

func TestHasManyRoundTripSQLite(t *testing.T) {
	svc := setupSQLite(t)
	types, err := svc.Component("userType")
	require.NoError(t, err)
	users, err := svc.Component("users")
	require.NoError(t, err)

	seedUserTypes(t, types, 2)
	_, err = users.BulkCreate(t.Context(), []query.Record{
		{"email": "a@x", "userTypeId": 1},
		{"email": "b@x", "userTypeId": 1},
		{"email": "c@x", "userTypeId": 1},
	}, component.BulkOptions{})
	require.NoError(t, err)

	page, err := types.ReadList(t.Context(), component.ListRequest{
		Request: filter.Request{Include: []string{"users"}},
		OrderBy: "id", OrderDirection: "ASC", PerPage: 1,
	})
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	assert.Len(t, page.Results[0]["users"], 3)
	assert.True(t, page.More)
	assert.Equal(t, 2, page.TotalPages)

	filtered, err := types.ReadList(t.Context(), component.ListRequest{
		Request: filter.Request{Filters: map[string]any{"userEmail": "b@"}},
	})
	require.NoError(t, err)
	require.Len(t, filtered.Results, 1)
	assert.Equal(t, 1, filtered.TotalPages)
	assert.Len(t, filtered.Results[0]["users"], 1)
}

func TestLikeAndExactMatchSQLite(t *testing.T) {
	svc := setupSQLite(t)
	c, err := svc.Component("userType")
	require.NoError(t, err)

	_, err = c.BulkCreate(t.Context(), []query.Record{{"name": "Admin"}, {"name": "adm"}, {"name": "guest"}}, component.BulkOptions{})
	require.NoError(t, err)

	like, err := c.ReadList(t.Context(), component.ListRequest{
		Request: filter.Request{Filters: map[string]any{"name": "adm"}},
	})
	require.NoError(t, err)
	assert.Len(t, like.Results, 2)

	exact, err := c.ReadList(t.Context(), component.ListRequest{
		Request: filter.Request{Filters: map[string]any{"name": "adm"}, ExactMatch: []string{"name"}},
	})
	require.NoError(t, err)
	require.Len(t, exact.Results, 1)
	assert.Equal(t, "adm", exact.Results[0]["name"])
}

func TestWritesSQLite(t *testing.T) {
	svc := setupSQLite(t)
	svc.Hook("userType", component.ForbidReferenced("users"))
	types, err := svc.Component("userType")
	require.NoError(t, err)
	users, err := svc.Component("users")
	require.NoError(t, err)

	seedUserTypes(t, types, 3)
	_, err = users.Create(t.Context(), query.Record{"email": "a@x", "userTypeId": 2})
	require.NoError(t, err)

	_, err = types.Update(t.Context(), component.UpdateRequest{Values: query.Record{"status": false}, Where: map[string]any{}})
	require.ErrorIs(t, err, component.ErrNoCriteria)

	res, err := types.Update(t.Context(), component.UpdateRequest{
		Values: query.Record{"status": false},
		Where:  map[string]any{"id": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Updated)

	_, err = types.Delete(t.Context(), component.DeleteRequest{IDs: []any{3, 2}})
	var verr *component.ValidationError
	require.ErrorAs(t, err, &verr)

	page, err := types.ReadList(t.Context(), component.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Results, 3, "rolled back delete must leave every row")

	del, err := types.Delete(t.Context(), component.DeleteRequest{IDs: []any{3}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), del.Deleted)

	rec, err := types.Read(t.Context(), filter.Request{Filters: map[string]any{"id": 3}})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestReadListOrderedByHasManySQLite(t *testing.T) {
	svc := setupSQLite(t)
	types, err := svc.Component("userType")
	require.NoError(t, err)
	users, err := svc.Component("users")
	require.NoError(t, err)

	seedUserTypes(t, types, 4)
	var recs []query.Record
	for typeID := 1; typeID <= 4; typeID++ {
		for _, prefix := range []string{"a", "b", "c"} {
			recs = append(recs, query.Record{"email": fmt.Sprintf("%s%d@x", prefix, typeID), "userTypeId": typeID})
		}
	}
	_, err = users.BulkCreate(t.Context(), recs, component.BulkOptions{})
	require.NoError(t, err)

	ids := func(t *testing.T, p *component.Page) []any {
		t.Helper()
		out := make([]any, len(p.Results))
		for i, r := range p.Results {
			out[i] = r["id"]
			assert.Len(t, r["users"], 3)
		}
		return out
	}

	tests := []struct {
		dir   string
		pages [][]any
	}{
		{"ASC", [][]any{{int64(1), int64(2)}, {int64(3), int64(4)}}},
		{"DESC", [][]any{{int64(4), int64(3)}, {int64(2), int64(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			for i, want := range tt.pages {
				page, err := types.ReadList(t.Context(), component.ListRequest{
					Request:        filter.Request{Include: []string{"users"}},
					OrderBy:        "users.email",
					OrderDirection: tt.dir,
					Page:           i + 1,
					PerPage:        2,
				})
				require.NoError(t, err)

				assert.Equal(t, 2, page.TotalPages)
				assert.Equal(t, want, ids(t, page), "page %d", i+1)
				assert.Equal(t, i == 0, page.More, "page %d", i+1)
			}
		})
	}
}

func TestBulkCreateSuppliedKeysSQLite(t *testing.T) {
	svc := setupSQLite(t)
	c, err := svc.Component("userType")
	require.NoError(t, err)

	created, err := c.BulkCreate(t.Context(), []query.Record{
		{"id": 10, "name": "a"},
		{"id": 5, "name": "b"},
	}, component.BulkOptions{})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, int64(10), created[0]["id"])
	assert.Equal(t, "a", created[0]["name"])
	assert.Equal(t, int64(5), created[1]["id"])
	assert.Equal(t, "b", created[1]["name"])

	one, err := c.Create(t.Context(), query.Record{"id": 42, "name": "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), one["id"])

	generated, err := c.Create(t.Context(), query.Record{"name": "d"})
	require.NoError(t, err)
	assert.Equal(t, int64(43), generated["id"])
}

func TestCaseSensitiveLikeSQLite(t *testing.T) {
	svc := setupSQLite(t)
	types, err := svc.Component("userType")
	require.NoError(t, err)
	users, err := svc.Component("users")
	require.NoError(t, err)

	_, err = types.Create(t.Context(), query.Record{"name": "Admin"})
	require.NoError(t, err)
	_, err = users.Create(t.Context(), query.Record{"email": "a@x", "userTypeId": 1})
	require.NoError(t, err)

	for _, tt := range []struct {
		value string
		want  int
	}{
		{"adm", 0},
		{"ADM", 0},
		{"Adm", 1},
		{"Admin", 1},
		{"A_m", 1},
		{"dmin", 0},
	} {
		page, err := users.ReadList(t.Context(), component.ListRequest{
			Request: filter.Request{Filters: map[string]any{"userTypeName": tt.value}},
		})
		require.NoError(t, err)
		assert.Len(t, page.Results, tt.want, tt.value)
	}
}

package schema_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/ramster/schema"
)

func TestLoadFile(t *testing.T) {
	t.Parallel()

	r, err := schema.LoadFile(filepath.Join("testdata", "registry.json"))
	require.NoError(t, err)

	names := make([]string, 0)
	for _, e := range r.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"userType", "users", "accessPoints"}, names)

	ut, err := r.Entity("userType")
	require.NoError(t, err)
	assert.Equal(t, []string{"From", "To"}, ut.SearchFields[3].Between)

	rel, ok := ut.Relation("accessPoints")
	require.True(t, ok)
	assert.Equal(t, []schema.OrderItem{{Field: "name", Direction: "ASC"}}, rel.Model().Order)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing entities", `{}`},
		{"unknown association type", `{"entities":[{"name":"a","columns":[],"associations":[{"name":"b","type":"manyToOne","componentName":"a"}]}]}`},
		{"belongsToMany without through", `{"entities":[{"name":"a","columns":[],"associations":[{"name":"b","type":"belongsToMany","componentName":"a"}]}]}`},
		{"dotted column", `{"entities":[{"name":"a","columns":[{"name":"x.y"}]}]}`},
		{"bad like", `{"entities":[{"name":"a","columns":[],"searchFields":[{"field":"x","like":"abc"}]}]}`},
		{"unknown property", `{"entities":[{"name":"a","columns":[],"extra":true}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := schema.Load([]byte(tt.doc))
			var de *schema.DescriptorError
			require.True(t, errors.As(err, &de), "err = %v", err)
			assert.NotEmpty(t, de.Violations)
		})
	}
}

func TestLoadRejectsGraphErrors(t *testing.T) {
	t.Parallel()

	doc := `{"entities":[{"name":"a","columns":[],"associations":[{"name":"b","type":"belongsTo","componentName":"missing"}]}]}`
	_, err := schema.Load([]byte(doc))
	require.ErrorIs(t, err, schema.ErrInvalidEntity)
}

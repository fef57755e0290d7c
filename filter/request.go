package filter

import (
	"fmt"
	"net/url"
	"strings"

	formschema "github.com/gorilla/schema"

	"github.com/mickamy/ramster/scope"
)

// Request is the per-call read input shared by read and readList.
type Request struct {
	// Filters maps search field names to raw values. A missing key is
	// not searched; a nil value searches for NULL.
	Filters map[string]any
	// Include names associations to join even when unfiltered.
	Include []string
	// ExactMatch lists search fields that skip like patterns and use
	// closed ranges.
	ExactMatch []string
	// Fields restricts the root entity's selected columns.
	Fields []string
	Scopes scope.Scopes
}

// Query is a readList request decoded from URL query parameters.
type Query struct {
	Page           int      `schema:"page"`
	PerPage        int      `schema:"perPage"`
	OrderBy        string   `schema:"orderBy"`
	OrderDirection string   `schema:"orderDirection"`
	ExactMatch     []string `schema:"exactMatch"`
	Include        []string `schema:"include"`
	Fields         []string `schema:"fields"`
	ReadAll        bool     `schema:"readAll"`
	ExcludeIDs     []string `schema:"excludeIds"`

	Filters map[string]any `schema:"-"`
}

const filtersPrefix = "filters."

var decoder = newDecoder()

func newDecoder() *formschema.Decoder {
	d := formschema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// DecodeQuery decodes paging, ordering and filter parameters:
//
//	?page=2&perPage=20&orderBy=name&include=users
//	&filters.name=adm&filters.status=true&filters.id.$not=1&filters.id.$not=2
//
// Repeated filter keys become arrays. The literal "null" searches for NULL.
func DecodeQuery(values url.Values) (Query, error) {
	var q Query
	plain := url.Values{}
	filters := map[string]any{}

	for key, vals := range values {
		if !strings.HasPrefix(key, filtersPrefix) {
			plain[key] = vals
			continue
		}
		field, op, _ := strings.Cut(strings.TrimPrefix(key, filtersPrefix), ".")
		if field == "" {
			return Query{}, fmt.Errorf("filter: empty filter name in %q", key)
		}
		v := queryValue(vals)
		switch op {
		case "":
			filters[field] = v
		case "$not":
			filters[field] = map[string]any{"$not": v}
		default:
			return Query{}, fmt.Errorf("filter: unsupported operator %q in %q", op, key)
		}
	}

	if err := decoder.Decode(&q, plain); err != nil {
		return Query{}, fmt.Errorf("filter: decode query: %w", err)
	}
	q.Filters = filters
	return q, nil
}

// Request returns the filter part of q.
func (q Query) Request() Request {
	return Request{
		Filters:    q.Filters,
		Include:    q.Include,
		ExactMatch: q.ExactMatch,
		Fields:     q.Fields,
	}
}

func queryValue(vals []string) any {
	if len(vals) == 1 {
		return nullable(vals[0])
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = nullable(v)
	}
	return out
}

func nullable(s string) any {
	if s == "null" {
		return nil
	}
	return s
}

package component

import (
	"context"

	"github.com/mickamy/ramster/filter"
	"github.com/mickamy/ramster/orm"
	"github.com/mickamy/ramster/query"
)

// ListRequest is the input of ReadList. Zero paging and ordering fields
// fall back to the entity defaults.
type ListRequest struct {
	filter.Request

	Page           int
	PerPage        int
	OrderBy        string
	OrderDirection string

	// ExcludeIDs are primary keys removed from the results.
	ExcludeIDs []any
	// ReadAll returns every match as a single page.
	ReadAll bool
}

// ListRequestFromQuery converts decoded URL parameters.
func ListRequestFromQuery(q filter.Query) ListRequest {
	req := ListRequest{
		Request:        q.Request(),
		Page:           q.Page,
		PerPage:        q.PerPage,
		OrderBy:        q.OrderBy,
		OrderDirection: q.OrderDirection,
		ReadAll:        q.ReadAll,
	}
	for _, id := range q.ExcludeIDs {
		req.ExcludeIDs = append(req.ExcludeIDs, id)
	}
	return req
}

// Page is one page of ReadList results.
type Page struct {
	TotalPages int            `json:"totalPages"`
	Page       int            `json:"page"`
	PerPage    int            `json:"perPage"`
	More       bool           `json:"more"`
	Results    []query.Record `json:"results"`
}

// Read returns the first entity matching req, or nil when none does.
func (c *Component) Read(ctx context.Context, req filter.Request) (query.Record, error) {
	s := filter.WhereQuery(c.entity, req.Filters, req.ExactMatch)
	recs, err := c.fetch(ctx, c.db, query.Request{
		Entity:   c.entity,
		Dialect:  c.db.Dialect(),
		Where:    s.Root,
		Includes: filter.IncludeQuery(c.entity, req.Include, s),
		Fields:   req.Fields,
		Limit:    1,
		Scopes:   req.Scopes,
	})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// ReadList returns one page of matching entities. The total is counted
// over filtered joins only, so unfiltered one-to-many includes never
// inflate it.
func (c *Component) ReadList(ctx context.Context, req ListRequest) (*Page, error) {
	qr, page, perPage := c.listRequest(c.db.Dialect(), req)

	plan, err := build(qr)
	if err != nil {
		return nil, err
	}
	count := plan.Count()
	total, err := orm.QueryInt64(ctx, c.db, count.SQL, count.Args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}

	out := &Page{Page: page, PerPage: perPage, Results: []query.Record{}}
	if req.ReadAll {
		out.Page, out.PerPage, out.TotalPages = 1, int(total), 1
	} else {
		out.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
		if out.TotalPages > 0 && page > out.TotalPages {
			out.Page = out.TotalPages
		}
		qr.Offset = (out.Page - 1) * perPage
		qr.Limit = perPage + 1
	}
	if total == 0 {
		return out, nil
	}

	recs, err := c.fetch(ctx, c.db, qr)
	if err != nil {
		return nil, err
	}
	if !req.ReadAll && len(recs) > perPage {
		recs = recs[:perPage]
		out.More = true
	}
	out.Results = recs
	return out, nil
}

// Explain returns the count and row statements ReadList would run for
// req on dialect d, assuming the requested page exists.
func (c *Component) Explain(d orm.Dialect, req ListRequest) (count, rows query.Statement, err error) {
	qr, page, perPage := c.listRequest(d, req)
	plan, err := build(qr)
	if err != nil {
		return count, rows, err
	}
	count = plan.Count()
	if !req.ReadAll {
		qr.Offset = (page - 1) * perPage
		qr.Limit = perPage + 1
	}
	if plan, err = build(qr); err != nil {
		return count, rows, err
	}
	return count, plan.Full(), nil
}

// listRequest resolves defaults and filters into an unpaginated request.
func (c *Component) listRequest(d orm.Dialect, req ListRequest) (query.Request, int, int) {
	defaults := c.entity.Defaults
	orderBy, dir := req.OrderBy, req.OrderDirection
	if orderBy == "" {
		orderBy = defaults.OrderBy
	}
	if dir == "" {
		dir = defaults.OrderDirection
	}
	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = defaults.Page
	}
	if perPage < 1 {
		perPage = defaults.PerPage
	}

	s := filter.WhereQuery(c.entity, req.Filters, req.ExactMatch)
	return query.Request{
		Entity:         c.entity,
		Dialect:        d,
		Where:          excludeIDs(s.Root, c.entity.PrimaryKey, req.ExcludeIDs),
		Includes:       filter.IncludeQuery(c.entity, req.Include, s),
		Fields:         req.Fields,
		OrderBy:        orderBy,
		OrderDirection: dir,
		Scopes:         req.Scopes,
	}, page, perPage
}

// excludeIDs ANDs a NOT IN on the primary key into an existing primary
// key condition, or adds one.
func excludeIDs(where []filter.Condition, pk string, ids []any) []filter.Condition {
	if len(ids) == 0 {
		return where
	}
	notIn := filter.NotIn(append([]any(nil), ids...))
	out := append([]filter.Condition(nil), where...)
	for i, c := range out {
		if c.Field != pk {
			continue
		}
		if and, ok := c.Value.(filter.And); ok {
			out[i].Value = append(append(filter.And(nil), and...), notIn)
		} else {
			out[i].Value = filter.And{c.Value, notIn}
		}
		return out
	}
	return append(out, filter.Condition{Field: pk, Value: notIn})
}

// Package component exposes table-backed entities through read, readList,
// create, bulkCreate, update and delete. Every call is independent; the
// only shared state is the read-only relation graph of the registry.
package component

import (
	"context"
	"errors"
	"fmt"

	"github.com/mickamy/ramster/orm"
	"github.com/mickamy/ramster/query"
	"github.com/mickamy/ramster/schema"
)

// Component runs the data-access operations of one entity.
type Component struct {
	entity *schema.Entity
	db     orm.Conn
	hooks  Hooks
}

// New returns a Component for e on db.
func New(db orm.Conn, e *schema.Entity, hooks ...Hooks) *Component {
	c := &Component{entity: e, db: db}
	for _, h := range hooks {
		c.hooks = c.hooks.Merge(h)
	}
	return c
}

// Entity returns the descriptor the component serves.
func (c *Component) Entity() *schema.Entity { return c.entity }

// Service resolves components by name from a built registry.
type Service struct {
	db       orm.Conn
	registry *schema.Registry
	hooks    map[string]Hooks
}

// NewService returns a Service over every entity of r.
func NewService(db orm.Conn, r *schema.Registry) *Service {
	return &Service{db: db, registry: r, hooks: map[string]Hooks{}}
}

// Hook attaches policy hooks to the named entity. It must be called
// before the service is shared between goroutines.
func (s *Service) Hook(name string, h Hooks) *Service {
	s.hooks[name] = s.hooks[name].Merge(h)
	return s
}

// Component returns the component for the named entity.
func (s *Service) Component(name string) (*Component, error) {
	e, err := s.registry.Entity(name)
	if err != nil {
		return nil, fmt.Errorf("component: %w", err)
	}
	return New(s.db, e, s.hooks[name]), nil
}

// inTx runs fn in tx when the caller supplied one, and otherwise in a
// new transaction that commits when fn succeeds.
func (c *Component) inTx(ctx context.Context, tx orm.Querier, fn func(tx orm.Querier) error) error {
	if tx != nil {
		return fn(tx)
	}
	return c.db.Transaction(ctx, fn) //nolint:wrapcheck // pass through
}

func (c *Component) fetch(ctx context.Context, db orm.Querier, req query.Request) ([]query.Record, error) {
	plan, err := build(req)
	if err != nil {
		return nil, err
	}
	stmt := plan.Full()
	rows, err := orm.QueryRows(ctx, db, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	return plan.Format(rows), nil
}

// build plans req, reporting an unusable order as a ValidationError.
func build(req query.Request) (*query.Plan, error) {
	plan, err := query.Build(req)
	if errors.Is(err, query.ErrInvalidOrder) {
		return nil, invalid(fmt.Sprintf("cannot order by %q", req.OrderBy))
	}
	return plan, err //nolint:wrapcheck // pass through
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mickamy/ramster/component"
	"github.com/mickamy/ramster/filter"
	"github.com/mickamy/ramster/internal/config"
	"github.com/mickamy/ramster/internal/log"
	"github.com/mickamy/ramster/orm"
	"github.com/mickamy/ramster/schema"
	"github.com/mickamy/ramster/scope"
)

var version = "dev"

func main() {
	registryPath := flag.String("registry", "", "entity descriptor JSON (default $RAMSTER_REGISTRY)")
	entityName := flag.String("entity", "", "entity to read (required)")
	rawQuery := flag.String("q", "", `readList parameters, e.g. "page=2&filters.name=adm"`)
	id := flag.String("id", "", "read a single entity by primary key")
	explain := flag.Bool("explain", false, "print the SQL instead of running it")
	dump := flag.Bool("dump", false, "dump results with their Go types")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("ramster", version)
		return
	}

	if *entityName == "" {
		log.Error("-entity flag is required")
		os.Exit(2)
	}

	if err := run(context.Background(), options{
		registry: *registryPath,
		entity:   *entityName,
		query:    *rawQuery,
		id:       *id,
		explain:  *explain,
		dump:     *dump,
	}); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

type options struct {
	registry string
	entity   string
	query    string
	id       string
	explain  bool
	dump     bool
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if opts.registry == "" {
		opts.registry = cfg.Registry
	}

	registry, err := schema.LoadFile(opts.registry)
	if err != nil {
		return err
	}
	entity, err := registry.Entity(opts.entity)
	if err != nil {
		return err
	}
	log.Info("loaded %d entities from %s", len(registry.Entities()), opts.registry)

	values, err := url.ParseQuery(opts.query)
	if err != nil {
		return fmt.Errorf("parse -q: %w", err)
	}
	q, err := filter.DecodeQuery(values)
	if err != nil {
		return err
	}
	req := component.ListRequestFromQuery(q)
	if req.PerPage == 0 && cfg.PerPage > 0 {
		req.PerPage = cfg.PerPage
	}

	d, err := orm.DialectFor(cfg.Database.Driver)
	if err != nil {
		return err
	}

	if opts.explain {
		count, rows, err := component.New(nil, entity).Explain(d, req)
		if err != nil {
			return err
		}
		fmt.Println(count.Interpolate(d) + ";")
		fmt.Println(rows.Interpolate(d) + ";")
		return nil
	}

	dsn, err := cfg.Database.DataSource()
	if err != nil {
		return err
	}
	db, err := orm.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if cfg.LogSQL {
		db = db.Debug(log.NewSQLLogger(d))
	}

	c, err := component.NewService(db, registry).Component(opts.entity)
	if err != nil {
		return err
	}

	var result any
	if opts.id != "" {
		byID := scope.Where(d.QuoteIdent(entity.Table)+"."+d.QuoteIdent(entity.PrimaryKey)+" = ?", opts.id)
		r := req.Request
		r.Scopes = r.Scopes.Append(byID)
		rec, err := c.Read(ctx, r)
		if err != nil {
			return err
		}
		if rec == nil {
			log.Warn("%s %s not found", opts.entity, opts.id)
		}
		result = rec
	} else {
		page, err := c.ReadList(ctx, req)
		if err != nil {
			return err
		}
		result = page
	}

	if opts.dump {
		fmt.Print(log.Dump(result))
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result) //nolint:wrapcheck // pass through
}

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/mickamy/ramster/orm"
)

// Config holds the CLI configuration.
type Config struct {
	Database DatabaseConfig
	// Registry is the path of the entity descriptor JSON.
	Registry string
	LogSQL   bool
	// PerPage overrides entity default page sizes when positive.
	PerPage int
}

// DatabaseConfig selects the driver and the data source. DSN wins over
// the individual parts.
type DatabaseConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// ErrNoDriver is returned when RAMSTER_DB_DRIVER is unset.
var ErrNoDriver = errors.New("config: RAMSTER_DB_DRIVER is required")

// LoadFromEnv reads .env when present, without overriding variables
// already set, and then the process environment.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "RAMSTER_") {
			env[k] = v
		}
	}
	return LoadFromMap(env)
}

// LoadFromMap builds a Config from explicit variables.
func LoadFromMap(env map[string]string) (*Config, error) {
	get := func(key, defaultValue string) string {
		if v, ok := env[key]; ok && v != "" {
			return v
		}
		return defaultValue
	}
	getInt := func(key string, defaultValue int) (int, error) {
		v, ok := env[key]
		if !ok || v == "" {
			return defaultValue, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("config: %s: %w", key, err)
		}
		return n, nil
	}

	port, err := getInt("RAMSTER_DB_PORT", 0)
	if err != nil {
		return nil, err
	}
	perPage, err := getInt("RAMSTER_PER_PAGE", 0)
	if err != nil {
		return nil, err
	}
	logSQL, err := strconv.ParseBool(get("RAMSTER_LOG_SQL", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: RAMSTER_LOG_SQL: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:   get("RAMSTER_DB_DRIVER", ""),
			DSN:      get("RAMSTER_DB_DSN", ""),
			Host:     get("RAMSTER_DB_HOST", "localhost"),
			Port:     port,
			User:     get("RAMSTER_DB_USER", ""),
			Password: get("RAMSTER_DB_PASSWORD", ""),
			Name:     get("RAMSTER_DB_NAME", ""),
		},
		Registry: get("RAMSTER_REGISTRY", "registry.json"),
		LogSQL:   logSQL,
		PerPage:  perPage,
	}
	if cfg.Database.Driver == "" {
		return nil, ErrNoDriver
	}
	if _, err := orm.DialectFor(cfg.Database.Driver); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// DataSource returns the DSN passed to sql.Open for the configured
// driver.
func (c DatabaseConfig) DataSource() (string, error) {
	switch c.Driver {
	case "mysql":
		if c.DSN != "" {
			if _, err := mysql.ParseDSN(c.DSN); err != nil {
				return "", fmt.Errorf("config: mysql dsn: %w", err)
			}
			return c.DSN, nil
		}
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(portOr(c.Port, 3306)))
		mc.DBName = c.Name
		mc.ParseTime = true
		return mc.FormatDSN(), nil

	case "postgres", "pgx":
		dsn := c.DSN
		if dsn == "" {
			u := url.URL{
				Scheme: "postgres",
				User:   url.UserPassword(c.User, c.Password),
				Host:   net.JoinHostPort(c.Host, strconv.Itoa(portOr(c.Port, 5432))),
				Path:   "/" + c.Name,
			}
			dsn = u.String()
		}
		if _, err := pgx.ParseConfig(dsn); err != nil {
			return "", fmt.Errorf("config: postgres dsn: %w", err)
		}
		return dsn, nil

	default:
		if c.DSN != "" {
			return c.DSN, nil
		}
		if c.Name == "" {
			return "", errors.New("config: RAMSTER_DB_DSN or RAMSTER_DB_NAME is required for sqlite3")
		}
		return c.Name, nil
	}
}

func portOr(port, fallback int) int {
	if port > 0 {
		return port
	}
	return fallback
}

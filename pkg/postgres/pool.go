package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns        = 4
	defaultConnLifetime    = time.Hour
	defaultConnIdleTime    = 10 * time.Minute
	defaultHealthCheckTick = 30 * time.Second
)

// Config holds PostgreSQL connection parameters. Zero values fall back to
// defaults sized for a small side store rather than a primary database.
type Config struct {
	URL             string
	ApplicationName string
	MaxConns        int32
	ConnLifetime    time.Duration
}

func (c Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	pc.MaxConns = defaultMaxConns
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	pc.MaxConnLifetime = defaultConnLifetime
	if c.ConnLifetime > 0 {
		pc.MaxConnLifetime = c.ConnLifetime
	}
	pc.MaxConnIdleTime = defaultConnIdleTime
	pc.HealthCheckPeriod = defaultHealthCheckTick

	if c.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = c.ApplicationName
	}
	return pc, nil
}

// NewPool opens a pool and pings it once so a bad URL fails at startup.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Pinger is the subset of *pgxpool.Pool used for liveness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping wraps db.Ping with a package-scoped error.
func Ping(ctx context.Context, db Pinger) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

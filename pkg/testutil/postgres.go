package testutil

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pkgpostgres "github.com/bibbank/fraudscore/pkg/postgres"
)

// PostgresDB is a throwaway database for integration tests. The pool and
// container are released through t.Cleanup.
type PostgresDB struct {
	DSN  string
	Pool *pgxpool.Pool
}

// StartPostgres runs postgres:16-alpine and connects a small pool to it.
func StartPostgres(ctx context.Context, t *testing.T) *PostgresDB {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fraudscore"),
		postgres.WithUsername("fraudscore"),
		postgres.WithPassword("fraudscore"),
		testcontainers.WithWaitStrategy(
			// postgres logs readiness once during init and once after restart.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(stopCtx); err != nil {
			t.Logf("warning: failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := pkgpostgres.NewPool(ctx, pkgpostgres.Config{URL: dsn, ApplicationName: t.Name()})
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	return &PostgresDB{DSN: dsn, Pool: pool}
}

// Migrate applies the migrations under dir in fsys.
func (db *PostgresDB) Migrate(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()

	if err := pkgpostgres.RunMigrations(db.DSN, fsys, dir); err != nil {
		t.Fatalf("failed to run migrations from %s: %v", dir, err)
	}
}

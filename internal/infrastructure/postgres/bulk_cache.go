package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/fraudscore/internal/domain/model"
	pkgpostgres "github.com/bibbank/fraudscore/pkg/postgres"
)

// BulkCache implements port.ResultCache with one row per running instance.
// Every write and Heartbeat stamps heartbeat_at. With a positive lease, Put
// also prunes rows of other instances whose heartbeat is older than the
// lease: those processes died without Close. A live instance keeps its row
// however long it stays idle, as long as it heartbeats.
type BulkCache struct {
	pool       *pgxpool.Pool
	instanceID uuid.UUID
	lease      time.Duration
}

// NewBulkCache creates a PostgreSQL-backed bulk result cache. A zero lease
// never prunes other instances' rows.
func NewBulkCache(pool *pgxpool.Pool, instanceID uuid.UUID, lease time.Duration) *BulkCache {
	return &BulkCache{pool: pool, instanceID: instanceID, lease: lease}
}

// Put upserts this instance's row.
func (c *BulkCache) Put(ctx context.Context, entry model.CachedTable) error {
	return pkgpostgres.WithTransaction(ctx, c.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if err := upsertBulkResult(ctx, tx, c.instanceID, entry); err != nil {
			return err
		}
		if c.lease > 0 {
			if err := pruneDeadInstances(ctx, tx, c.instanceID, c.lease); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertBulkResult(ctx context.Context, q pkgpostgres.Querier, instanceID uuid.UUID, entry model.CachedTable) error {
	query := `
		INSERT INTO bulk_results (instance_id, handle, data, row_count, created_at, heartbeat_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (instance_id) DO UPDATE SET
			handle = EXCLUDED.handle,
			data = EXCLUDED.data,
			row_count = EXCLUDED.row_count,
			created_at = EXCLUDED.created_at,
			heartbeat_at = EXCLUDED.heartbeat_at
	`
	_, err := q.Exec(ctx, query,
		instanceID,
		uuid.UUID(entry.Handle),
		entry.Data,
		entry.Rows,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save bulk result: %w", err)
	}
	return nil
}

// pruneDeadInstances compares against the database clock so replicas with
// skewed clocks agree on which heartbeats are stale.
func pruneDeadInstances(ctx context.Context, q pkgpostgres.Querier, keep uuid.UUID, lease time.Duration) error {
	_, err := q.Exec(ctx,
		`DELETE FROM bulk_results
		 WHERE instance_id <> $1 AND heartbeat_at < now() - make_interval(secs => $2)`,
		keep, lease.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to prune stale bulk results: %w", err)
	}
	return nil
}

// Latest returns this instance's row or model.ErrNoCacheAvailable.
func (c *BulkCache) Latest(ctx context.Context) (model.CachedTable, error) {
	var (
		handle    uuid.UUID
		data      []byte
		rows      int
		createdAt time.Time
	)

	err := c.pool.QueryRow(ctx,
		`SELECT handle, data, row_count, created_at FROM bulk_results WHERE instance_id = $1`,
		c.instanceID,
	).Scan(&handle, &data, &rows, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CachedTable{}, model.ErrNoCacheAvailable
	}
	if err != nil {
		return model.CachedTable{}, fmt.Errorf("failed to load bulk result: %w", err)
	}

	return model.CachedTable{
		Handle:    model.CacheHandle(handle),
		Data:      data,
		Rows:      rows,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// Close deletes this instance's row.
func (c *BulkCache) Close(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM bulk_results WHERE instance_id = $1`, c.instanceID); err != nil {
		return fmt.Errorf("failed to delete bulk result: %w", err)
	}
	return nil
}

// Heartbeat marks this instance alive. Before the first Put there is no row
// and nothing to update.
func (c *BulkCache) Heartbeat(ctx context.Context) error {
	_, err := c.pool.Exec(ctx,
		`UPDATE bulk_results SET heartbeat_at = now() WHERE instance_id = $1`,
		c.instanceID,
	)
	if err != nil {
		return fmt.Errorf("failed to record bulk cache heartbeat: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (c *BulkCache) Ping(ctx context.Context) error {
	return pkgpostgres.Ping(ctx, c.pool)
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func ConnectPostgres(databaseURL string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{Pool: pool}, nil
}

const mediaAssetsSchema = `
CREATE TABLE IF NOT EXISTS media_assets (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	parent_entity_id TEXT NOT NULL,
	file_url TEXT NOT NULL,
	source_file_url TEXT,
	source_filename TEXT,
	source_format TEXT,
	target_format TEXT,
	requires_conversion BOOLEAN NOT NULL DEFAULT FALSE,
	conversion_status TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_media_assets_parent
	ON media_assets (parent_entity_id);

CREATE INDEX IF NOT EXISTS idx_media_assets_pending_conversion
	ON media_assets (conversion_status)
	WHERE requires_conversion AND conversion_status IN ('pending', 'failed');
`

// Migrate applies the media_assets schema. Statements are idempotent so this
// runs unconditionally at startup.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, mediaAssetsSchema); err != nil {
		return fmt.Errorf("apply media_assets schema: %w", err)
	}
	return nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Asset is one cached response body.
type Asset struct {
	Generation string
	URL        string
	StatusCode int
	// Headers is the JSON-encoded response header map
	Headers  []byte
	Body     []byte
	StoredAt time.Time
}

// AssetRepository stores cached assets keyed by generation and URL.
type AssetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Get returns the asset, or nil when it is not cached.
func (r *AssetRepository) Get(ctx context.Context, generation, url string) (*Asset, error) {
	query := `
		SELECT generation, url, status_code, headers, body, stored_at
		FROM asset_cache
		WHERE generation = $1 AND url = $2
	`

	var a Asset
	err := r.db.QueryRowContext(ctx, query, generation, url).Scan(
		&a.Generation,
		&a.URL,
		&a.StatusCode,
		&a.Headers,
		&a.Body,
		&a.StoredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	return &a, nil
}

// Put inserts or replaces an asset.
func (r *AssetRepository) Put(ctx context.Context, a Asset) error {
	query := `
		INSERT INTO asset_cache (generation, url, status_code, headers, body, stored_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (generation, url) DO UPDATE SET
			status_code = EXCLUDED.status_code,
			headers = EXCLUDED.headers,
			body = EXCLUDED.body,
			stored_at = EXCLUDED.stored_at
	`

	headers := a.Headers
	if len(headers) == 0 {
		headers = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx, query, a.Generation, a.URL, a.StatusCode, headers, a.Body, a.StoredAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to store asset: %w", err)
	}
	return nil
}

// Generations lists every generation with at least one asset.
func (r *AssetRepository) Generations(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT generation FROM asset_cache ORDER BY generation`)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeleteGeneration removes every asset of a generation.
func (r *AssetRepository) DeleteGeneration(ctx context.Context, generation string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM asset_cache WHERE generation = $1`, generation)
	if err != nil {
		return 0, fmt.Errorf("failed to delete generation %s: %w", generation, err)
	}
	return res.RowsAffected()
}

// Count returns the number of assets in a generation.
func (r *AssetRepository) Count(ctx context.Context, generation string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM asset_cache WHERE generation = $1`, generation,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return n, nil
}

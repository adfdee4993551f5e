package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/unklstewy/loc-v2/internal/db"
)

// PostgresStore keeps entries in the asset_cache table.
type PostgresStore struct {
	database *db.DB
	repo     *db.AssetRepository
}

var (
	_ Store         = (*PostgresStore)(nil)
	_ Pinger        = (*PostgresStore)(nil)
	_ StatsReporter = (*PostgresStore)(nil)
)

// NewPostgresStore wraps an open database. The schema must already exist.
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{database: database, repo: db.NewAssetRepository(database)}
}

func (s *PostgresStore) Get(ctx context.Context, generation, url string) (*Entry, error) {
	a, err := s.repo.Get(ctx, generation, url)
	if err != nil || a == nil {
		return nil, err
	}

	e := Entry{
		URL:        a.URL,
		StatusCode: a.StatusCode,
		Body:       a.Body,
		StoredAt:   a.StoredAt,
	}
	if err := json.Unmarshal(a.Headers, &e.Header); err != nil {
		return nil, fmt.Errorf("failed to decode headers for %s: %w", url, err)
	}
	return &e, nil
}

func (s *PostgresStore) Put(ctx context.Context, generation string, e Entry) error {
	headers, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("failed to encode headers for %s: %w", e.URL, err)
	}
	return db.WithRetry(ctx, func() error {
		return s.repo.Put(ctx, db.Asset{
			Generation: generation,
			URL:        e.URL,
			StatusCode: e.StatusCode,
			Headers:    headers,
			Body:       e.Body,
			StoredAt:   e.StoredAt,
		})
	}, 2)
}

func (s *PostgresStore) Generations(ctx context.Context) ([]string, error) {
	return s.repo.Generations(ctx)
}

func (s *PostgresStore) DeleteGeneration(ctx context.Context, generation string) error {
	_, err := s.repo.DeleteGeneration(ctx, generation)
	return err
}

func (s *PostgresStore) Count(ctx context.Context, generation string) (int, error) {
	return s.repo.Count(ctx, generation)
}

func (s *PostgresStore) Close() error {
	return s.database.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if !db.HealthCheck(ctx, s.database) {
		return errors.New("postgres health check failed")
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.database.GetStats(ctx)
}

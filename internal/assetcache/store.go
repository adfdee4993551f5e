package assetcache

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/unklstewy/loc-v2/internal/db"
	"github.com/unklstewy/loc-v2/pkg/config"
)

// Entry is a stored response.
type Entry struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
}

// Store persists entries grouped by cache generation. Implementations are
// safe for concurrent use.
type Store interface {
	// Get returns the entry, or nil when it is not stored
	Get(ctx context.Context, generation, url string) (*Entry, error)
	Put(ctx context.Context, generation string, e Entry) error
	Generations(ctx context.Context) ([]string, error)
	DeleteGeneration(ctx context.Context, generation string) error
	Count(ctx context.Context, generation string) (int, error)
	Close() error
}

// Pinger is implemented by stores backed by a server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsReporter is implemented by stores that can describe their backend.
type StatsReporter interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// OpenStore builds the store named by cfg.AssetCache.Store.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.AssetCache.Store {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		database, err := db.ReconnectWithRetry(ctx, cfg.Database, 3, time.Second)
		if err != nil {
			return nil, err
		}
		if err := database.InitSchema(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return NewPostgresStore(database), nil
	default:
		return nil, fmt.Errorf("unknown asset store %q", cfg.AssetCache.Store)
	}
}

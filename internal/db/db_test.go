package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unklstewy/loc-v2/pkg/config"
)

func testConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:         "localhost",
		Port:         5432,
		Username:     "locv2",
		Password:     "locv2",
		Database:     "locv2_test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 1,
	}
}

// connectOrSkip returns a live connection or skips when no database is running.
func connectOrSkip(t *testing.T) *DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := Connect(ctx, testConfig())
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		t.Skipf("cannot create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConnect(t *testing.T) {
	t.Run("Unreachable host reports an error", func(t *testing.T) {
		cfg := testConfig()
		cfg.Port = 1

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		db, err := Connect(ctx, cfg)
		if err == nil {
			db.Close()
			t.Skip("something is listening on port 1")
		}
		if err.Error() == "" {
			t.Error("Expected non-empty error message")
		}
	})
}

func TestReconnectWithRetry(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 1

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := ReconnectWithRetry(ctx, cfg, 2, 10*time.Millisecond)
	if err == nil {
		t.Skip("something is listening on port 1")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Expected a backoff delay between attempts")
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("i/o Timeout"), true},
		{errors.New("duplicate key value"), false},
	}
	for _, tt := range tests {
		if got := IsConnectionError(tt.err); got != tt.want {
			t.Errorf("Expected %v for %v, got %v", tt.want, tt.err, got)
		}
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("Non-connection errors are not retried", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return errors.New("syntax error")
		}, 3)
		if err == nil {
			t.Fatal("Expected error")
		}
		if calls != 1 {
			t.Errorf("Expected 1 call, got %d", calls)
		}
	})

	t.Run("Success stops retrying", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return nil
		}, 3)
		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("Expected 1 call, got %d", calls)
		}
	})

	t.Run("Cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, func() error {
			return errors.New("connection reset by peer")
		}, 3)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestAssetRepository(t *testing.T) {
	db := connectOrSkip(t)
	repo := NewAssetRepository(db)
	ctx := context.Background()

	gen := "test-gen-" + time.Now().Format("150405.000")
	t.Cleanup(func() { repo.DeleteGeneration(ctx, gen) })

	asset := Asset{
		Generation: gen,
		URL:        "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css",
		StatusCode: 200,
		Headers:    []byte(`{"Content-Type":["text/css"]}`),
		Body:       []byte("body{}"),
		StoredAt:   time.Now(),
	}
	if err := repo.Put(ctx, asset); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, gen, asset.URL)
	if err != nil || got == nil {
		t.Fatalf("Expected stored asset, got %v (%v)", got, err)
	}
	if string(got.Body) != "body{}" || got.StatusCode != 200 {
		t.Errorf("Expected stored body and status, got %q %d", got.Body, got.StatusCode)
	}

	missing, err := repo.Get(ctx, gen, "https://example.com/none")
	if err != nil || missing != nil {
		t.Errorf("Expected nil for missing asset, got %v (%v)", missing, err)
	}

	n, err := repo.DeleteGeneration(ctx, gen)
	if err != nil || n != 1 {
		t.Errorf("Expected 1 deleted row, got %d (%v)", n, err)
	}
}

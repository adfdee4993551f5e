package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/unklstewy/loc-v2/pkg/config"
)

// RedisStore keeps entries as JSON values under <prefix>asset:<gen>:<url>
// and tracks generations in the <prefix>generations set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.KeyPrefix}, nil
}

func (s *RedisStore) entryKey(generation, url string) string {
	return s.prefix + "asset:" + generation + ":" + url
}

func (s *RedisStore) generationsKey() string {
	return s.prefix + "generations"
}

func (s *RedisStore) Get(ctx context.Context, generation, url string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.entryKey(generation, url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode asset %s: %w", url, err)
	}
	return &e, nil
}

func (s *RedisStore) Put(ctx context.Context, generation string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode asset %s: %w", e.URL, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.entryKey(generation, e.URL), data, 0)
	pipe.SAdd(ctx, s.generationsKey(), generation)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store asset: %w", err)
	}
	return nil
}

func (s *RedisStore) Generations(ctx context.Context) ([]string, error) {
	gens, err := s.client.SMembers(ctx, s.generationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	sort.Strings(gens)
	return gens, nil
}

// generationKeys scans every key of a generation.
func (s *RedisStore) generationKeys(ctx context.Context, generation string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.entryKey(generation, "*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan generation %s: %w", generation, err)
	}
	return keys, nil
}

func (s *RedisStore) DeleteGeneration(ctx context.Context, generation string) error {
	keys, err := s.generationKeys(ctx, generation)
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += 100 {
		end := min(start+100, len(keys))
		if err := s.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete generation %s: %w", generation, err)
		}
	}
	return s.client.SRem(ctx, s.generationsKey(), generation).Err()
}

func (s *RedisStore) Count(ctx context.Context, generation string) (int, error) {
	keys, err := s.generationKeys(ctx, generation)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

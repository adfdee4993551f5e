package assetcache

import (
	"context"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
)

const keySep = "\x00"

// MemoryStore keeps entries in process memory. Entries never expire; they
// are removed only by DeleteGeneration.
type MemoryStore struct {
	cache *cache.Cache
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 0)}
}

func memoryKey(generation, url string) string {
	return generation + keySep + url
}

func (s *MemoryStore) Get(ctx context.Context, generation, url string) (*Entry, error) {
	v, ok := s.cache.Get(memoryKey(generation, url))
	if !ok {
		return nil, nil
	}
	e := v.(Entry)
	return &e, nil
}

func (s *MemoryStore) Put(ctx context.Context, generation string, e Entry) error {
	s.cache.Set(memoryKey(generation, e.URL), e, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Generations(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for k := range s.cache.Items() {
		gen, _, _ := strings.Cut(k, keySep)
		seen[gen] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) DeleteGeneration(ctx context.Context, generation string) error {
	prefix := generation + keySep
	for k := range s.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Delete(k)
		}
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, generation string) (int, error) {
	prefix := generation + keySep
	n := 0
	for k := range s.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

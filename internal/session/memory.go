package session

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/m-mizutani/goerr/v2"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in a bounded in-process LRU.
// Entries past their TTL are treated as absent and evicted on read.
type MemoryStore struct {
	cache *lru.Cache[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryStore creates a store holding at most size keys.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, goerr.Wrap(ErrStorage, "failed to create LRU cache", goerr.V("size", size))
	}
	return &MemoryStore{cache: cache, now: time.Now}, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(entry.expiresAt) {
		m.cache.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Add(key, memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	})
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}

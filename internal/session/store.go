// Package session persists the per-video bundle a question is answered
// against and caches its comment embeddings. Payloads are JSON, gzipped and
// base64-encoded, stored with a TTL in one of several key-value backends.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/config"
)

var (
	ErrSessionExpired = goerr.New("session expired or not found")
	ErrDataCorruption = goerr.New("session data is corrupted")
	ErrStorage        = goerr.New("session storage failed")
)

// Store is a TTL key-value store. A missing or expired key is reported as
// found=false with a nil error; errors are reserved for backend failures.
// Get is atomic per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Type.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case config.StoreMemory:
		store, err := NewMemoryStore(cfg.MemorySize)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreRedis:
		return NewRedisStore(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	default:
		return nil, goerr.Wrap(ErrStorage, "unknown store type", goerr.V("type", cfg.Type))
	}
}

// storageError wraps a backend failure in ErrStorage, keeping err in the chain.
func storageError(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrStorage, err), msg, opts...)
}

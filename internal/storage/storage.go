// Package storage provides the durable key-value persistence used for
// pairing state and the accessory identity.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/hapd/internal/config"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Store is a durable key-value store. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "", config.StorageBackendFile:
		logger.Info("Using file storage", "directory", cfg.Directory)
		return NewFileStore(cfg.Directory)
	case config.StorageBackendRedis:
		logger.Info("Using redis storage", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

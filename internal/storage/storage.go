// Package storage holds the durable key-value backends for draft collections
// and the synchronous slot used for unload-time writes.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/db"
	"github.com/debemdeboas/draftdesk/internal/util/compression"
)

var ErrNotFound = errors.New("key not found")

var storageLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storageLogger = l
}

// Durable is an asynchronous key-value store that survives restarts.
// Get returns ErrNotFound when the key has never been written.
type Durable interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Slot is a synchronous key-value store. A Write has completed once it returns.
type Slot interface {
	Read(key string) (string, bool, error)
	Write(key, value string) error
	Clear(key string) error
}

// Open builds the durable backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Durable, error) {
	compressor, err := compression.New(cfg.Compression)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		database := db.NewSQLite(cfg.SQLite.Path)
		if err := database.InitDB(); err != nil {
			return nil, fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
		}
		return NewSQLiteStore(database, compressor), nil

	case config.BackendRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			storageLogger.Warn().Msg("Redis unavailable, falling back to in-memory draft storage")
			return NewMemoryStore(), nil
		}
		return NewRedisStore(client, cfg.Redis.KeyPrefix), nil

	case config.BackendS3:
		return NewS3Store(ctx, cfg.S3, compressor)

	case config.BackendMemory:
		return NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

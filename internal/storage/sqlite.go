package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/draftdesk/internal/db"
	"github.com/debemdeboas/draftdesk/internal/util"
	"github.com/debemdeboas/draftdesk/internal/util/compression"
)

type SQLiteStore struct { // implements Durable
	db         db.DB
	compressor compression.Compressor
}

func NewSQLiteStore(database db.DB, compressor compression.Compressor) *SQLiteStore {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	return &SQLiteStore{
		db:         database,
		compressor: compressor,
	}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var compressed []byte
	row := s.db.QueryRowContext(ctx, `SELECT value FROM draft_collections WHERE key = ?`, key)
	if err := row.Scan(&compressed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading %s: %w", key, err)
	}

	value, err := s.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	compressed, err := s.compressor.Compress(value)
	if err != nil {
		return fmt.Errorf("error compressing %s: %w", key, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_collections (key, value, content_hash, modified_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, content_hash = excluded.content_hash, modified_at = excluded.modified_at`,
		key, compressed, util.ContentHash(compressed), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving %s: %w", key, err)
	}

	storageLogger.Debug().Str("key", key).Int("bytes", len(compressed)).Interface("result", res).Msg("Collection saved")
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM draft_collections WHERE key = ?`, key); err != nil {
		return fmt.Errorf("error deleting %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// KVStore manages the kv_cache table, the remote tier of the rating cache.
// Values are opaque JSON blobs keyed by the schema in internal/cache
// (rating:<imdbID>, map:<kind>:<tmdbID>, cron:state, omdb:usage:<date>).
type KVStore struct {
	db *sql.DB
}

// NewKVStore creates a new KV store and ensures its table exists
func NewKVStore(db *sql.DB) (*KVStore, error) {
	s := &KVStore{db: db}
	if err := s.initTable(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *KVStore) initTable() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS kv_cache (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS kv_counters (
			key TEXT PRIMARY KEY,
			count BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create kv table: %w", err)
		}
	}

	return nil
}

// Get retrieves a single value. Returns nil with no error on a miss.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv_cache WHERE key = $1", key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return value, nil
}

// GetMulti retrieves multiple keys in one round trip. Missing keys are
// simply absent from the returned map.
func (s *KVStore) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM kv_cache WHERE key = ANY($1)", pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to multi-get %d keys: %w", len(keys), err)
	}
	defer rows.Close()

	result := make(map[string][]byte, len(keys))
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		result[key] = value
	}

	return result, rows.Err()
}

// Set upserts a single value
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_cache (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key)
		 DO UPDATE SET value = $2, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// SetMulti upserts a batch of values in one statement
func (s *KVStore) SetMulti(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	query := "INSERT INTO kv_cache (key, value, updated_at) VALUES "
	args := make([]interface{}, 0, len(entries)*2)
	i := 0
	for key, value := range entries {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d, NOW())", i*2+1, i*2+2)
		args = append(args, key, value)
		i++
	}
	query += " ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()"

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to multi-set %d keys: %w", len(entries), err)
	}
	return nil
}

// Increment atomically adds one to a counter and returns the new value
func (s *KVStore) Increment(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO kv_counters (key, count, updated_at)
		 VALUES ($1, 1, NOW())
		 ON CONFLICT (key)
		 DO UPDATE SET count = kv_counters.count + 1, updated_at = NOW()
		 RETURNING count`,
		key,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return count, nil
}

// GetCount reads a counter. Returns 0, false on a miss.
func (s *KVStore) GetCount(ctx context.Context, key string) (int64, bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT count FROM kv_counters WHERE key = $1", key,
	).Scan(&count)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get counter %s: %w", key, err)
	}

	return count, true, nil
}

// SetNX inserts a key only if it does not exist and reports whether this
// call won. Used as the atomic daily run lock for the population job.
func (s *KVStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_cache (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO NOTHING`,
		key, value,
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire %s: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for %s: %w", key, err)
	}

	return rows == 1, nil
}

package lookupcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/dividends/internal/database"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps entries in the lookup_cache table. Expired rows are
// ignored on read and removed by DeleteExpired.
type SQLiteStore struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLiteStore expects db to be migrated with the "lookup_cache" schema.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Kind() string {
	return "sqlite"
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		value     []byte
		expiresAt sql.NullInt64
	)
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT value, expires_at FROM lookup_cache
		 WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.now().UnixMilli(),
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to get %s from lookup cache: %w", key, err)
	}

	entry := Entry{Value: value}
	if expiresAt.Valid {
		entry.ExpiresAt = time.UnixMilli(expiresAt.Int64)
	}
	return entry, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return ErrNegativeTTL
	}

	var expiresAt sql.NullInt64
	if ttl != NoExpiry {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
	}

	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO lookup_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store %s in lookup cache: %w", key, err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry has passed.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM lookup_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired lookup cache entries: %w", err)
	}
	return result.RowsAffected()
}

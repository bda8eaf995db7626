// Package lookupcache is the fast lookup cache that short-circuits the
// resolution flow: string keys, serialized values, per-entry TTL.
package lookupcache

import (
	"context"
	"errors"
	"time"
)

// NoExpiry as a TTL stores an entry that never expires.
const NoExpiry time.Duration = 0

// ErrNegativeTTL is returned by stores for TTLs below zero.
var ErrNegativeTTL = errors.New("ttl must not be negative")

// Entry is a stored value. A zero ExpiresAt means the entry never expires.
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Store is a key-value backend with lazy, per-entry expiry.
type Store interface {
	// Get returns found=false for missing or expired keys.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set overwrites key. ttl == NoExpiry keeps the entry forever.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Kind names the backend for logs and status output.
	Kind() string
}

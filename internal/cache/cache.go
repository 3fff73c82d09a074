package cache

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Store is a byte-valued key/value cache with per-entry TTL and prefix purge.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// OwnerPrefix returns "<kind>:<len(owner)>:<owner>:". The length keeps owner
// ids that contain ':' from sharing a prefix with another owner.
func OwnerPrefix(kind, ownerID string) string {
	var b strings.Builder
	b.Grow(len(kind) + len(ownerID) + 8)
	b.WriteString(kind)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(len(ownerID)))
	b.WriteByte(':')
	b.WriteString(ownerID)
	b.WriteByte(':')
	return b.String()
}

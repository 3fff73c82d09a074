package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agendafacil/backend/internal/cache"
	"agendafacil/backend/internal/clock"
)

const (
	DefaultTTL     = 60 * time.Second
	MaxTokenLength = 256
	keyKind        = "idem"
)

// Record is the outcome of the first successful request carrying a token.
type Record struct {
	Status    int       `json:"status"`
	Body      []byte    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Guard remembers successful responses per (owner, token) so a retried request
// gets the original bytes back instead of executing twice.
type Guard struct {
	store cache.Store
	ttl   time.Duration
	clock clock.Clock
}

func NewGuard(store cache.Store, ttl time.Duration, clk clock.Clock) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Guard{store: store, ttl: ttl, clock: clk}
}

func Key(ownerID, token string) string {
	return cache.OwnerPrefix(keyKind, ownerID) + token
}

// Lookup returns the live record for (owner, token). Records older than the
// TTL are deleted and reported as missing.
func (g *Guard) Lookup(ctx context.Context, ownerID, token string) (Record, bool, error) {
	key := Key(ownerID, token)
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil || !ok {
		return Record{}, false, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		_ = g.store.Delete(ctx, key)
		return Record{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	if g.clock.Now().Sub(rec.CreatedAt) > g.ttl {
		_ = g.store.Delete(ctx, key)
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (g *Guard) Remember(ctx context.Context, ownerID, token string, status int, body []byte) (Record, error) {
	rec := Record{Status: status, Body: body, CreatedAt: g.clock.Now().UTC()}
	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	if err := g.store.Set(ctx, Key(ownerID, token), raw, g.ttl); err != nil {
		return Record{}, err
	}
	return rec, nil
}

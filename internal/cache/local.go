package cache

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"agendafacil/backend/internal/clock"
)

const sweepEvery = 256

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Local keeps entries in process memory. Expired entries are dropped when read
// and swept periodically on write.
type Local struct {
	entries *xsync.MapOf[string, entry]
	clock   clock.Clock
	writes  atomic.Uint64
}

func NewLocal(clk clock.Clock) *Local {
	if clk == nil {
		clk = clock.System{}
	}
	return &Local{
		entries: xsync.NewMapOf[string, entry](),
		clock:   clk,
	}
}

func (l *Local) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := l.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	if !l.clock.Now().Before(e.expiresAt) {
		l.entries.Compute(key, func(cur entry, loaded bool) (entry, bool) {
			// Keep a fresher value written after our Load.
			return cur, !loaded || cur.expiresAt.Equal(e.expiresAt)
		})
		return nil, false, nil
	}
	return e.value, true, nil
}

func (l *Local) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := l.clock.Now()
	l.entries.Store(key, entry{value: value, expiresAt: now.Add(ttl)})
	if l.writes.Add(1)%sweepEvery == 0 {
		l.sweep(now)
	}
	return nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	l.entries.Delete(key)
	return nil
}

func (l *Local) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var keys []string
	l.entries.Range(func(key string, _ entry) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	for _, k := range keys {
		l.entries.Delete(k)
	}
	return len(keys), nil
}

// Len reports the number of stored entries, expired ones included.
func (l *Local) Len() int {
	return l.entries.Size()
}

func (l *Local) sweep(now time.Time) {
	l.entries.Range(func(key string, e entry) bool {
		if !now.Before(e.expiresAt) {
			l.entries.Compute(key, func(cur entry, loaded bool) (entry, bool) {
				return cur, !loaded || !now.Before(cur.expiresAt)
			})
		}
		return true
	})
}

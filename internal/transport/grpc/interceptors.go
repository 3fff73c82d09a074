package grpc

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RequestTimeoutInterceptor applies timeout to calls that arrive without a deadline.
func RequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

// PeerLimiter keeps one token bucket per client address. Buckets of peers
// that have been quiet for peerIdleTTL are dropped.
type PeerLimiter struct {
	mu        sync.Mutex
	peers     map[string]*peerBucket
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type peerBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	peerIdleTTL    = 10 * time.Minute
	peerSweepEvery = time.Minute
)

func NewPeerLimiter(rps float64, burst int) *PeerLimiter {
	if burst < 1 {
		burst = 1
	}
	return &PeerLimiter{
		peers: make(map[string]*peerBucket),
		limit: rate.Limit(rps),
		burst: burst,
		now:   time.Now,
	}
}

func (l *PeerLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= peerSweepEvery {
		l.sweep(now)
	}
	b, ok := l.peers[key]
	if !ok {
		b = &peerBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.peers[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Len reports how many peers currently hold a bucket.
func (l *PeerLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers)
}

// sweep must be called with mu held.
func (l *PeerLimiter) sweep(now time.Time) {
	for key, b := range l.peers {
		if now.Sub(b.lastSeen) > peerIdleTTL {
			delete(l.peers, key)
		}
	}
	l.lastSweep = now
}

// RateLimitInterceptor throttles the public booking RPCs per peer. Panel calls
// pass through. A nil limiter disables throttling.
func RateLimitInterceptor(l *PeerLimiter, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	prefix := "/" + BookingEngineServiceName + "/"

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if l == nil || !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}
		key := peerKey(ctx)
		if !l.Allow(key) {
			log.Warn("rate limit exceeded", slog.String("peer", key), slog.String("method", info.FullMethod))
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded, try again later")
		}
		return handler(ctx, req)
	}
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es el equivalente in-process de RedisLimiter. Los contadores
// no se comparten entre réplicas.
type MemoryLimiter struct {
	c      *gocache.Cache
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(prefix string, max int, window time.Duration) *MemoryLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &MemoryLimiter{
		c:      gocache.New(window, 2*window),
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	k, winStart := windowKey(l.prefix, key, now, l.window)
	ttl := winStart.Add(l.window).Sub(now)

	// Add falla si ya existe: en ese caso solo incrementamos.
	_ = l.c.Add(k, int64(0), ttl)
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// Expiró entre Add e Increment: arranca una ventana nueva.
		l.c.Set(k, int64(1), ttl)
		hits = 1
	}
	return result(hits, l.max, ttl, l.window), nil
}

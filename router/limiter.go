package router

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a buyer may make another assistant call.
type Limiter interface {
	Allow(buyerID int64) bool
}

const maxTrackedBuyers = 10000

type buyerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one token bucket per buyer in memory.
type localLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[int64]*buyerLimiter
}

// NewLocalLimiter allows perMinute assistant calls per buyer, with a burst
// of the same size.
func NewLocalLimiter(perMinute float64) Limiter {
	burst := int(math.Ceil(perMinute))
	if burst < 1 {
		burst = 1
	}
	return &localLimiter{
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		limiters: make(map[int64]*buyerLimiter),
	}
}

func (l *localLimiter) Allow(buyerID int64) bool {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.limiters[buyerID]
	if !ok {
		if len(l.limiters) >= maxTrackedBuyers {
			l.evictIdle(now)
		}
		b = &buyerLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[buyerID] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// evictIdle drops buckets that have refilled completely; they carry no state.
func (l *localLimiter) evictIdle(now time.Time) {
	refill := time.Minute
	if l.limit > 0 {
		refill = time.Duration(float64(l.burst) / float64(l.limit) * float64(time.Second))
	}
	for id, b := range l.limiters {
		if now.Sub(b.lastSeen) > refill {
			delete(l.limiters, id)
		}
	}
}

// NoLimiter never limits.
type NoLimiter struct{}

func (NoLimiter) Allow(int64) bool { return true }

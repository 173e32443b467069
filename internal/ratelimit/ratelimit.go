package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket limiter placed in front of each outbound API
// client. Refill rate and burst are fixed at construction.
type Limiter struct {
	rate       float64 // tokens per second
	tokens     float64
	maxTokens  float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// New creates a limiter allowing rps requests per second with a burst of rps
func New(rps float64) *Limiter {
	return NewBurst(rps, rps)
}

// NewBurst creates a limiter with an explicit burst capacity. Some providers
// (DexScreener) tolerate short bursts, others (Neynar) do not.
func NewBurst(rps, burst float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:       rps,
		tokens:     burst,
		maxTokens:  burst,
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.tryTake() {
			return nil
		}

		wait := time.Duration(float64(time.Second) / l.rate)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *Limiter) tryTake() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.lastUpdate).Seconds() * l.rate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastUpdate = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return true
	}
	return false
}

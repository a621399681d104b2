// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTtl is how long an unused per-token limiter survives before a
// sweep drops it.
const limiterIdleTtl = 10 * time.Minute

type tokenLimiter struct {
	limiter  *rate.Limiter
	limit    uint32
	lastSeen time.Time
}

// rateLimiterPool holds one token-bucket limiter per rate-limited token.
// There is no background goroutine; stale limiters are swept inline at most
// once per ttl so the pool's footprint tracks the active token set.
type rateLimiterPool struct {
	mu        sync.Mutex
	limiters  map[string]*tokenLimiter
	ttl       time.Duration
	timeNow   func() time.Time
	lastSweep time.Time
}

func newRateLimiterPool(timeNow func() time.Time) *rateLimiterPool {
	if timeNow == nil {
		timeNow = time.Now
	}
	return &rateLimiterPool{
		limiters: make(map[string]*tokenLimiter),
		ttl:      limiterIdleTtl,
		timeNow:  timeNow,
	}
}

// allow reports whether the token may authenticate now under its per-minute
// limit. The bucket refills at limit/minute and bursts up to the full
// limit. A limit change discards the token's old bucket.
func (p *rateLimiterPool) allow(tokenId string, perMinute uint32) bool {
	if perMinute == 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.timeNow()
	p.sweep(now)
	l, ok := p.limiters[tokenId]
	if !ok || l.limit != perMinute {
		l = &tokenLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), int(perMinute)),
			limit:   perMinute,
		}
		p.limiters[tokenId] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// sweep drops limiters idle past the ttl. Callers must hold mu.
func (p *rateLimiterPool) sweep(now time.Time) {
	if now.Sub(p.lastSweep) < p.ttl {
		return
	}
	for id, l := range p.limiters {
		if now.Sub(l.lastSeen) > p.ttl {
			delete(p.limiters, id)
		}
	}
	p.lastSweep = now
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterPool(t *testing.T) {
	t.Parallel()

	// A settable clock so refill and sweep behavior is deterministic.
	newClock := func(start time.Time) (func() time.Time, *time.Time) {
		now := start
		return func() time.Time { return now }, &now
	}
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	t.Run("bursts-up-to-the-limit-then-denies", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		clock, _ := newClock(start)
		p := newRateLimiterPool(clock)

		for i := 0; i < 3; i++ {
			assert.Truef(p.allow("apit_1", 3), "call %d should be allowed", i)
		}
		assert.False(p.allow("apit_1", 3))
	})
	t.Run("zero-means-unlimited", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		clock, _ := newClock(start)
		p := newRateLimiterPool(clock)
		for i := 0; i < 100; i++ {
			assert.True(p.allow("apit_1", 0))
		}
		assert.Empty(p.limiters)
	})
	t.Run("refills-over-time", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		clock, now := newClock(start)
		p := newRateLimiterPool(clock)

		assert.True(p.allow("apit_1", 2))
		assert.True(p.allow("apit_1", 2))
		assert.False(p.allow("apit_1", 2))

		// 2 per minute refills one token every 30 seconds.
		*now = now.Add(30 * time.Second)
		assert.True(p.allow("apit_1", 2))
		assert.False(p.allow("apit_1", 2))
	})
	t.Run("tokens-do-not-share-buckets", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		clock, _ := newClock(start)
		p := newRateLimiterPool(clock)

		assert.True(p.allow("apit_1", 1))
		assert.False(p.allow("apit_1", 1))
		assert.True(p.allow("apit_2", 1))
	})
	t.Run("limit-change-replaces-the-bucket", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		clock, _ := newClock(start)
		p := newRateLimiterPool(clock)

		assert.True(p.allow("apit_1", 1))
		assert.False(p.allow("apit_1", 1))

		// Raising the limit starts a fresh full bucket.
		assert.True(p.allow("apit_1", 5))
		assert.Equal(uint32(5), p.limiters["apit_1"].limit)
	})
	t.Run("sweep-drops-idle-limiters", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		clock, now := newClock(start)
		p := newRateLimiterPool(clock)

		assert.True(p.allow("apit_idle", 10))
		require.Contains(p.limiters, "apit_idle")

		// Beyond the ttl the next caller sweeps the idle entry.
		*now = now.Add(limiterIdleTtl + time.Minute)
		assert.True(p.allow("apit_active", 10))
		assert.NotContains(p.limiters, "apit_idle")
		assert.Contains(p.limiters, "apit_active")
	})
}

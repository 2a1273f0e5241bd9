package analysis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/edirooss/headend-server/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Sampler produces one fresh sample per call. Satisfied by *Analyzer.
type Sampler interface {
	Analyze(ctx context.Context, channelID int64) *StreamAnalysis
}

// Cache memoizes the latest sample per channel for a short TTL.
//
// Failure samples are cached too: a dead feed is re-probed at most once per
// TTL window instead of on every poll. Concurrent misses for the same channel
// are coalesced so only one analyzer invocation runs.
type Cache struct {
	log     *zap.Logger
	sampler Sampler
	mtr     *metrics.Collector
	ttl     time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	entries map[int64]cacheEntry

	sg singleflight.Group
}

type cacheEntry struct {
	sample     *StreamAnalysis
	capturedAt time.Time
}

// NewCache wires the sampler and cache policy. ttl <= 0 selects the 2s
// default.
func NewCache(log *zap.Logger, sampler Sampler, mtr *metrics.Collector, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &Cache{
		log:     log.Named("analysis_cache"),
		sampler: sampler,
		mtr:     mtr,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]cacheEntry),
	}
}

// Get returns the cached sample when fresh, otherwise triggers a resample and
// stores whatever comes back.
func (c *Cache) Get(ctx context.Context, channelID int64) *StreamAnalysis {
	// Fast path: fresh entry.
	c.mu.RLock()
	if ent, ok := c.entries[channelID]; ok && c.now().Sub(ent.capturedAt) < c.ttl {
		c.mu.RUnlock()
		c.mtr.ObserveCacheLookup(true)
		return ent.sample
	}
	c.mu.RUnlock()

	c.mtr.ObserveCacheLookup(false)

	// Slow path: coalesced resample.
	v, _, _ := c.sg.Do(strconv.FormatInt(channelID, 10), func() (any, error) {
		// Double-check freshness after winning the flight.
		c.mu.RLock()
		if ent, ok := c.entries[channelID]; ok && c.now().Sub(ent.capturedAt) < c.ttl {
			c.mu.RUnlock()
			return ent.sample, nil
		}
		c.mu.RUnlock()

		sample := c.sampler.Analyze(ctx, channelID)

		c.mu.Lock()
		c.entries[channelID] = cacheEntry{sample: sample, capturedAt: c.now()}
		c.mu.Unlock()

		return sample, nil
	})
	return v.(*StreamAnalysis)
}

// Invalidate drops the cached sample for one channel.
func (c *Cache) Invalidate(channelID int64) {
	c.mu.Lock()
	delete(c.entries, channelID)
	c.mu.Unlock()
}

package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingSampler struct {
	mu    sync.Mutex
	calls int
	make  func(channelID int64) *StreamAnalysis
}

func (s *countingSampler) Analyze(_ context.Context, channelID int64) *StreamAnalysis {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.make(channelID)
}

func (s *countingSampler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func okSample(channelID int64) *StreamAnalysis {
	return &StreamAnalysis{
		Available: true,
		Bitrate:   &BitrateStat{TotalBitsPerSecond: channelID * 1000},
	}
}

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(sampler Sampler, clk *fakeClock) *Cache {
	c := NewCache(zap.NewNop(), sampler, nil, 2*time.Second)
	c.now = clk.now
	return c
}

func TestCacheServesFreshSample(t *testing.T) {
	sampler := &countingSampler{make: okSample}
	clk := &fakeClock{t: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(sampler, clk)

	first := cache.Get(context.Background(), 7)
	clk.advance(500 * time.Millisecond)
	second := cache.Get(context.Background(), 7)

	if sampler.count() != 1 {
		t.Fatalf("sampler ran %d times, want 1 inside TTL", sampler.count())
	}
	if first != second {
		t.Error("second call inside TTL returned a different sample")
	}
}

func TestCacheResamplesAfterTTL(t *testing.T) {
	sampler := &countingSampler{make: okSample}
	clk := &fakeClock{t: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(sampler, clk)

	cache.Get(context.Background(), 7)
	clk.advance(3 * time.Second)
	cache.Get(context.Background(), 7)

	if sampler.count() != 2 {
		t.Fatalf("sampler ran %d times, want 2 after TTL expiry", sampler.count())
	}
}

func TestCacheIsolatesChannels(t *testing.T) {
	sampler := &countingSampler{make: okSample}
	clk := &fakeClock{t: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(sampler, clk)

	a := cache.Get(context.Background(), 1)
	b := cache.Get(context.Background(), 2)

	if sampler.count() != 2 {
		t.Fatalf("sampler ran %d times, want 2 for two channels", sampler.count())
	}
	if a.Bitrate.TotalBitsPerSecond == b.Bitrate.TotalBitsPerSecond {
		t.Error("channels shared a sample")
	}
}

func TestCacheCachesFailures(t *testing.T) {
	sampler := &countingSampler{make: func(int64) *StreamAnalysis {
		return &StreamAnalysis{Available: false, Error: "feed not found"}
	}}
	clk := &fakeClock{t: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(sampler, clk)

	cache.Get(context.Background(), 7)
	clk.advance(time.Second)
	got := cache.Get(context.Background(), 7)

	if sampler.count() != 1 {
		t.Fatalf("sampler ran %d times, want 1; failures must be cached too", sampler.count())
	}
	if got.Available || got.Error != "feed not found" {
		t.Errorf("sample = %+v", got)
	}
}

func TestCacheInvalidate(t *testing.T) {
	sampler := &countingSampler{make: okSample}
	clk := &fakeClock{t: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(sampler, clk)

	cache.Get(context.Background(), 7)
	cache.Invalidate(7)
	cache.Get(context.Background(), 7)

	if sampler.count() != 2 {
		t.Fatalf("sampler ran %d times, want 2 after invalidation", sampler.count())
	}
}

func TestCacheCoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	sampler := &countingSampler{make: func(channelID int64) *StreamAnalysis {
		<-release
		return okSample(channelID)
	}}
	clk := &fakeClock{t: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(sampler, clk)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Get(context.Background(), 7)
		}()
	}
	// Give the goroutines a moment to pile onto the same flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := sampler.count(); got != 1 {
		t.Fatalf("sampler ran %d times, want 1 for coalesced misses", got)
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edirooss/headend-server/internal/analysis"
	"go.uber.org/zap"
)

type quickSamplerFunc struct {
	mu    sync.Mutex
	calls int
	fn    func(channelID int64) analysis.QuickReading
}

func (s *quickSamplerFunc) QuickBitrate(_ context.Context, channelID int64) analysis.QuickReading {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(channelID)
}

func (s *quickSamplerFunc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func okReading(channelID int64) analysis.QuickReading {
	return analysis.QuickReading{ChannelID: channelID, Available: true, BitsPerSecond: channelID * 1000}
}

func newTestSummary(dir ChannelDirectory, sampler QuickSampler, now func() time.Time) *AnalysisSummary {
	s := NewAnalysisSummary(zap.NewNop(), dir, sampler, SummaryOptions{TTL: 2 * time.Second})
	s.now = now
	return s
}

func TestSummaryCoversAllChannelsInOrder(t *testing.T) {
	sampler := &quickSamplerFunc{fn: okReading}
	s := newTestSummary(&fakeDirectory{ids: []int64{1, 2, 3}}, sampler, time.Now)

	res, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("first call reported a cache hit")
	}
	if len(res.Data) != 3 {
		t.Fatalf("got %d readings", len(res.Data))
	}
	for i, want := range []int64{1, 2, 3} {
		if res.Data[i].ChannelID != want {
			t.Errorf("reading %d is channel %d, want %d", i, res.Data[i].ChannelID, want)
		}
	}
}

func TestSummaryServesSnapshotInsideTTL(t *testing.T) {
	sampler := &quickSamplerFunc{fn: okReading}
	clock := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	s := newTestSummary(&fakeDirectory{ids: []int64{1, 2}}, sampler, now)

	first, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	clock = clock.Add(time.Second)
	mu.Unlock()

	second, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second call inside TTL missed the snapshot")
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Error("cache hit reported a different generation time")
	}
	if got := sampler.count(); got != 2 {
		t.Fatalf("sampler ran %d times, want 2 (one per channel, once)", got)
	}

	mu.Lock()
	clock = clock.Add(5 * time.Second)
	mu.Unlock()

	third, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("call after TTL expiry reported a cache hit")
	}
	if got := sampler.count(); got != 4 {
		t.Fatalf("sampler ran %d times, want 4 after one refresh", got)
	}
}

func TestSummaryDirectoryFailure(t *testing.T) {
	boom := errors.New("store down")
	s := newTestSummary(&fakeDirectory{err: boom}, &quickSamplerFunc{fn: okReading}, time.Now)

	if _, err := s.Get(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped directory error, got %v", err)
	}
}

func TestSummaryIncludesUnavailableReadings(t *testing.T) {
	sampler := &quickSamplerFunc{fn: func(channelID int64) analysis.QuickReading {
		if channelID == 2 {
			return analysis.QuickReading{ChannelID: channelID, Error: "feed not found"}
		}
		return okReading(channelID)
	}}
	s := newTestSummary(&fakeDirectory{ids: []int64{1, 2, 3}}, sampler, time.Now)

	res, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 3 {
		t.Fatalf("got %d readings, want dead channels included", len(res.Data))
	}
	if res.Data[1].Available || res.Data[1].Error != "feed not found" {
		t.Errorf("reading = %+v", res.Data[1])
	}
}

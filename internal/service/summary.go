package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edirooss/headend-server/internal/analysis"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// QuickSampler is the lightweight analyzer mode. Satisfied by
// *analysis.Analyzer.
type QuickSampler interface {
	QuickBitrate(ctx context.Context, channelID int64) analysis.QuickReading
}

// SummaryOptions tunes the analysis-summary snapshot.
type SummaryOptions struct {
	// TTL controls how long the in-memory snapshot is served. Default 2s,
	// matching the per-channel analysis cache.
	TTL time.Duration
	// RefreshTimeout bounds one refresh across all channels. Default 15s.
	RefreshTimeout time.Duration
	// Parallelism bounds concurrent quick-bitrate probes. Default 8.
	Parallelism int
}

func (o *SummaryOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 2 * time.Second
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = 15 * time.Second
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 8
	}
}

// SummaryResult lets the handler set cache headers.
type SummaryResult struct {
	Data        []analysis.QuickReading
	CacheHit    bool
	GeneratedAt time.Time
}

// AnalysisSummary serves a quick-bitrate reading across every known channel
// from a short-TTL snapshot, so the per-channel analyzer is not fanned out on
// every UI poll. Concurrent refreshes are coalesced.
type AnalysisSummary struct {
	log     *zap.Logger
	dir     ChannelDirectory
	sampler QuickSampler

	mu      sync.RWMutex
	cache   []analysis.QuickReading
	expires time.Time
	genAt   time.Time

	opts SummaryOptions
	now  func() time.Time

	sg singleflight.Group
}

func NewAnalysisSummary(log *zap.Logger, dir ChannelDirectory, sampler QuickSampler, opts SummaryOptions) *AnalysisSummary {
	opts.setDefaults()
	return &AnalysisSummary{
		log:     log.Named("analysis_summary"),
		dir:     dir,
		sampler: sampler,
		opts:    opts,
		now:     time.Now,
	}
}

// Get returns the cached snapshot or refreshes it when expired.
func (s *AnalysisSummary) Get(ctx context.Context) (SummaryResult, error) {
	// Fast path: fresh cache.
	s.mu.RLock()
	if s.cache != nil && s.now().Before(s.expires) {
		out := cloneReadings(s.cache)
		genAt := s.genAt
		s.mu.RUnlock()
		return SummaryResult{Data: out, CacheHit: true, GeneratedAt: genAt}, nil
	}
	s.mu.RUnlock()

	// Slow path: singleflight refresh.
	v, err, _ := s.sg.Do("summary-refresh", func() (any, error) {
		// Double-check freshness after winning the flight.
		s.mu.RLock()
		if s.cache != nil && s.now().Before(s.expires) {
			out := cloneReadings(s.cache)
			genAt := s.genAt
			s.mu.RUnlock()
			return SummaryResult{Data: out, CacheHit: true, GeneratedAt: genAt}, nil
		}
		s.mu.RUnlock()

		ctx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
		defer cancel()

		start := s.now()
		data, err := s.refresh(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache = data
		s.expires = s.now().Add(s.opts.TTL)
		s.genAt = start
		s.mu.Unlock()

		return SummaryResult{Data: cloneReadings(data), GeneratedAt: start}, nil
	})
	if err != nil {
		return SummaryResult{}, err
	}
	return v.(SummaryResult), nil
}

func (s *AnalysisSummary) refresh(ctx context.Context) ([]analysis.QuickReading, error) {
	ids, err := s.dir.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	out := make([]analysis.QuickReading, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for i, id := range ids {
		g.Go(func() error {
			out[i] = s.sampler.QuickBitrate(gctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func cloneReadings(in []analysis.QuickReading) []analysis.QuickReading {
	if len(in) == 0 {
		return nil
	}
	out := make([]analysis.QuickReading, len(in))
	copy(out, in)
	return out
}

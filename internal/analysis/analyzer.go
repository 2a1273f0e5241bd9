package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/edirooss/headend-server/internal/execx"
	"github.com/edirooss/headend-server/internal/metrics"
	"go.uber.org/zap"
)

// Failure reasons carried in StreamAnalysis.Error / QuickReading.Error.
const (
	reasonFeedNotFound = "feed not found"
	reasonTimeout      = "no stream data (timeout)"
	reasonParseFailure = "parse failure"
)

// quickBitratePattern matches the quick-mode free-text reading, e.g.
// "TS bitrate: 20,000,000 b/s".
var quickBitratePattern = regexp.MustCompile(`([\d,]+)\s*b/s`)

// AnalyzerOptions tunes the external analyzer invocation.
type AnalyzerOptions struct {
	// Bin is the full-analysis tool. Default "tsfeed-analyze".
	Bin string
	// QuickBin is the bitrate-only tool. Default "tsfeed-bitrate".
	QuickBin string
	// FeedTemplate locates the per-channel feed pipe; %d is the channel ID.
	// Default "/run/headend/feeds/ch%d.ts".
	FeedTemplate string
	// Window is the capture duration passed to the tool. Default 1s.
	Window time.Duration
	// Timeout is the hard bound on a tool invocation. Default 5s.
	Timeout time.Duration
}

func (o *AnalyzerOptions) setDefaults() {
	if o.Bin == "" {
		o.Bin = "tsfeed-analyze"
	}
	if o.QuickBin == "" {
		o.QuickBin = "tsfeed-bitrate"
	}
	if o.FeedTemplate == "" {
		o.FeedTemplate = "/run/headend/feeds/ch%d.ts"
	}
	if o.Window <= 0 {
		o.Window = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
}

// Analyzer samples a channel's transport-stream feed by invoking the external
// analyzer tool. Failures never surface as errors; they are encoded into the
// returned sample so the cache can absorb them for the TTL window.
type Analyzer struct {
	log    *zap.Logger
	runner execx.Runner
	mtr    *metrics.Collector
	opts   AnalyzerOptions
	now    func() time.Time

	// stat is swappable in tests.
	stat func(string) (os.FileInfo, error)
}

func NewAnalyzer(log *zap.Logger, runner execx.Runner, mtr *metrics.Collector, opts AnalyzerOptions) *Analyzer {
	opts.setDefaults()
	return &Analyzer{
		log:    log.Named("stream_analyzer"),
		runner: runner,
		mtr:    mtr,
		opts:   opts,
		now:    time.Now,
		stat:   os.Stat,
	}
}

func (a *Analyzer) feedPath(channelID int64) string {
	return fmt.Sprintf(a.opts.FeedTemplate, channelID)
}

func unavailable(reason string, at time.Time) *StreamAnalysis {
	return &StreamAnalysis{Available: false, Timestamp: at, Error: reason}
}

// Analyze runs a full capture of the channel's feed and parses the analyzer's
// JSON report.
func (a *Analyzer) Analyze(ctx context.Context, channelID int64) *StreamAnalysis {
	sample := a.analyze(ctx, channelID)
	a.mtr.ObserveAnalyzer("full", sample.Available)
	return sample
}

func (a *Analyzer) analyze(ctx context.Context, channelID int64) *StreamAnalysis {
	now := a.now()

	feed := a.feedPath(channelID)
	if _, err := a.stat(feed); err != nil {
		return unavailable(reasonFeedNotFound, now)
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	windowSecs := strconv.Itoa(int(a.opts.Window.Round(time.Second) / time.Second))
	res, err := a.runner.Run(ctx, a.opts.Bin, "--json", "--duration", windowSecs, feed)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return unavailable(reasonTimeout, now)
	case err != nil:
		return unavailable(err.Error(), now)
	case res.ExitCode != 0:
		return unavailable(diagnosticText(res), now)
	case len(res.Stdout) == 0:
		return unavailable(reasonTimeout, now)
	}

	sample := Parse(res.Stdout, now)
	if sample == nil {
		a.log.Warn("analyzer output not parseable", zap.Int64("channel_id", channelID))
		return unavailable(reasonParseFailure, now)
	}
	return sample
}

// QuickBitrate runs the lightweight analyzer mode and extracts the single
// bits-per-second reading from its free-text output.
func (a *Analyzer) QuickBitrate(ctx context.Context, channelID int64) QuickReading {
	reading := a.quickBitrate(ctx, channelID)
	a.mtr.ObserveAnalyzer("quick", reading.Available)
	return reading
}

func (a *Analyzer) quickBitrate(ctx context.Context, channelID int64) QuickReading {
	now := a.now()
	out := QuickReading{ChannelID: channelID, Timestamp: now}

	feed := a.feedPath(channelID)
	if _, err := a.stat(feed); err != nil {
		out.Error = reasonFeedNotFound
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	res, err := a.runner.Run(ctx, a.opts.QuickBin, feed)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Error = reasonTimeout
		return out
	case err != nil:
		out.Error = err.Error()
		return out
	case res.ExitCode != 0:
		out.Error = diagnosticText(res)
		return out
	}

	m := quickBitratePattern.FindSubmatch(res.Stdout)
	if m == nil {
		out.Error = reasonTimeout
		return out
	}
	bps, err := strconv.ParseInt(strings.ReplaceAll(string(m[1]), ",", ""), 10, 64)
	if err != nil {
		out.Error = reasonParseFailure
		return out
	}

	out.Available = true
	out.BitsPerSecond = bps
	out.Mbps = formatMbps(bps, 2)
	return out
}

func diagnosticText(res execx.Result) string {
	if diag := strings.TrimSpace(string(res.Stderr)); diag != "" {
		return diag
	}
	return fmt.Sprintf("analyzer exited with code %d", res.ExitCode)
}

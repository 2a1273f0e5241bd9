// Package service coordinates the controller core: bulk process control,
// whole-head-end status, and the cross-channel analysis summary.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edirooss/headend-server/internal/systemd"
	"github.com/edirooss/headend-server/internal/unit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoValidTargets signals a bulk request whose explicit channel subset has
// no overlap with the known channel set.
var ErrNoValidTargets = errors.New("no valid channel targets")

// ProcessControl is the controller surface the orchestrator fans out over.
// Satisfied by *systemd.Controller.
type ProcessControl interface {
	Probe(ctx context.Context, channelID int64, kind unit.Kind) (systemd.ServiceRuntimeState, error)
	Control(ctx context.Context, channelID int64, kind unit.Kind, action unit.Action) (systemd.ServiceRuntimeState, error)
}

// ChannelDirectory exposes the known channel set. Satisfied by
// *repo.ChannelRepository.
type ChannelDirectory interface {
	IDs(ctx context.Context) ([]int64, error)
	HasID(ctx context.Context, id int64) (bool, error)
}

// BulkResult is one channel's outcome within a bulk operation.
type BulkResult struct {
	ChannelID int64                        `json:"channelId"`
	Success   bool                         `json:"success"`
	Error     string                       `json:"error,omitempty"`
	State     *systemd.ServiceRuntimeState `json:"state,omitempty"`
}

// BulkReport is the aggregate of a bulk operation. AllSucceeded is true only
// when every targeted channel succeeded; the per-channel detail is always
// present regardless.
type BulkReport struct {
	Results      []BulkResult `json:"results"`
	Succeeded    int          `json:"succeeded"`
	Failed       int          `json:"failed"`
	AllSucceeded bool         `json:"allSucceeded"`
}

// OrchestratorOptions tunes the fan-out.
type OrchestratorOptions struct {
	// Parallelism bounds concurrent supervisor calls. Default 8.
	Parallelism int
	// BulkTimeout is the whole-operation budget, so one hung channel cannot
	// leak beyond the bulk call. Default 60s.
	BulkTimeout time.Duration
}

func (o *OrchestratorOptions) setDefaults() {
	if o.Parallelism <= 0 {
		o.Parallelism = 8
	}
	if o.BulkTimeout <= 0 {
		o.BulkTimeout = 60 * time.Second
	}
}

// Orchestrator fans a single action out across channels, aggregating
// per-channel outcomes without aborting on first failure.
type Orchestrator struct {
	log  *zap.Logger
	ctrl ProcessControl
	dir  ChannelDirectory
	opts OrchestratorOptions
}

func NewOrchestrator(log *zap.Logger, ctrl ProcessControl, dir ChannelDirectory, opts OrchestratorOptions) *Orchestrator {
	opts.setDefaults()
	return &Orchestrator{
		log:  log.Named("bulk_orchestrator"),
		ctrl: ctrl,
		dir:  dir,
		opts: opts,
	}
}

// BulkControl applies one action of one kind to a set of channels.
//
// An empty ids slice targets every known channel. An explicit subset is
// filtered against the known channel set; if nothing survives the filter the
// call fails fast with ErrNoValidTargets before touching any process.
// Each channel's outcome is captured independently; one failure never aborts
// the siblings.
func (o *Orchestrator) BulkControl(ctx context.Context, kind unit.Kind, action unit.Action, ids []int64) (BulkReport, error) {
	if _, err := unit.ParseKind(kind.String()); err != nil {
		return BulkReport{}, err
	}
	if _, err := unit.ParseAction(action.String()); err != nil {
		return BulkReport{}, err
	}

	targets, err := o.resolveTargets(ctx, ids)
	if err != nil {
		return BulkReport{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.BulkTimeout)
	defer cancel()

	results := make([]BulkResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Parallelism)
	for i, id := range targets {
		g.Go(func() error {
			st, err := o.ctrl.Control(gctx, id, kind, action)
			if err != nil {
				results[i] = BulkResult{ChannelID: id, Error: err.Error()}
				return nil // capture, never short-circuit siblings
			}
			results[i] = BulkResult{ChannelID: id, Success: true, State: &st}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	report := BulkReport{Results: results}
	for _, r := range results {
		if r.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.AllSucceeded = report.Failed == 0

	o.log.Info("bulk control finished",
		zap.String("kind", kind.String()),
		zap.String("action", action.String()),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
	return report, nil
}

// resolveTargets filters the requested subset against the known channel set,
// or returns every known channel when the subset is empty.
func (o *Orchestrator) resolveTargets(ctx context.Context, ids []int64) ([]int64, error) {
	known, err := o.dir.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	if len(ids) == 0 {
		if len(known) == 0 {
			return nil, ErrNoValidTargets
		}
		return known, nil
	}

	knownSet := make(map[int64]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	targets := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := knownSet[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		return nil, ErrNoValidTargets
	}
	return targets, nil
}

// ServiceStatus pairs a kind with its probed state, or the probe failure.
type ServiceStatus struct {
	Kind  unit.Kind                    `json:"kind"`
	State *systemd.ServiceRuntimeState `json:"state,omitempty"`
	Error string                       `json:"error,omitempty"`
}

// ChannelStatus is the probe result for all three services of one channel.
type ChannelStatus struct {
	ChannelID int64           `json:"channelId"`
	Services  []ServiceStatus `json:"services"`
}

// StatusAll probes every kind of every known channel concurrently.
func (o *Orchestrator) StatusAll(ctx context.Context) ([]ChannelStatus, error) {
	known, err := o.dir.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.BulkTimeout)
	defer cancel()

	out := make([]ChannelStatus, len(known))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Parallelism)
	for i, id := range known {
		g.Go(func() error {
			row := ChannelStatus{ChannelID: id, Services: make([]ServiceStatus, 0, 3)}
			for _, kind := range unit.Kinds() {
				st, err := o.ctrl.Probe(gctx, id, kind)
				if err != nil {
					row.Services = append(row.Services, ServiceStatus{Kind: kind, Error: err.Error()})
					continue
				}
				row.Services = append(row.Services, ServiceStatus{Kind: kind, State: &st})
			}
			out[i] = row
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

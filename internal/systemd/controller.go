package systemd

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/edirooss/headend-server/internal/execx"
	"github.com/edirooss/headend-server/internal/metrics"
	"github.com/edirooss/headend-server/internal/unit"
	"go.uber.org/zap"
)

// showProperties is the property set fetched on every probe.
const showProperties = "MainPID,ActiveEnterTimestamp,MemoryCurrent,LoadState,SubState"

// systemctl prints ActiveEnterTimestamp like "Thu 2026-08-27 12:00:01 UTC".
const activeEnterLayout = "Mon 2006-01-02 15:04:05 MST"

// ControllerOptions tunes external-call budgets.
type ControllerOptions struct {
	// Settle is the pause between a control verb and the follow-up probe.
	// systemctl verbs queue asynchronous jobs; probing immediately would race
	// the state transition. Default 500ms.
	Settle time.Duration
	// ProbeTimeout bounds the two probe queries together. Default 10s.
	ProbeTimeout time.Duration
	// ControlTimeout bounds a privileged systemctl verb. Default 30s.
	ControlTimeout time.Duration
}

func (o *ControllerOptions) setDefaults() {
	if o.Settle <= 0 {
		o.Settle = 500 * time.Millisecond
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 10 * time.Second
	}
	if o.ControlTimeout <= 0 {
		o.ControlTimeout = 30 * time.Second
	}
}

// Controller probes and controls per-channel managed processes.
type Controller struct {
	log      *zap.Logger
	runner   execx.Runner
	resolver *unit.Resolver
	mtr      *metrics.Collector
	opts     ControllerOptions
	now      func() time.Time
}

func NewController(log *zap.Logger, runner execx.Runner, resolver *unit.Resolver, mtr *metrics.Collector, opts ControllerOptions) *Controller {
	opts.setDefaults()
	return &Controller{
		log:      log.Named("process_controller"),
		runner:   runner,
		resolver: resolver,
		mtr:      mtr,
		opts:     opts,
		now:      time.Now,
	}
}

// Probe reads the current runtime state of one (channel, kind) process.
//
// Two queries are issued and merged: "is-active" for the activation state and
// "show" for MainPID, ActiveEnterTimestamp, MemoryCurrent, LoadState and
// SubState. An is-active non-zero exit is a valid reading (inactive units
// exit 3), never a failure.
func (c *Controller) Probe(ctx context.Context, channelID int64, kind unit.Kind) (ServiceRuntimeState, error) {
	unitName, err := c.resolver.Resolve(channelID, kind)
	if err != nil {
		return ServiceRuntimeState{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	activeRes, err := c.runner.Run(ctx, "systemctl", "is-active", unitName)
	if err != nil {
		return ServiceRuntimeState{}, &ProcessControlError{Unit: unitName, Op: "is-active", Err: err}
	}
	activeState := strings.TrimSpace(string(activeRes.Stdout))

	showRes, err := c.runner.Run(ctx, "systemctl", "show", "--property="+showProperties, unitName)
	if err != nil {
		return ServiceRuntimeState{}, &ProcessControlError{Unit: unitName, Op: "show", Err: err}
	}
	if showRes.ExitCode != 0 {
		return ServiceRuntimeState{}, &ProcessControlError{Unit: unitName, Op: "show", Diagnostic: strings.TrimSpace(string(showRes.Stderr))}
	}
	props := parseProperties(showRes.Stdout)

	st := ServiceRuntimeState{
		ChannelID:   channelID,
		Kind:        kind,
		Unit:        unitName,
		Status:      mapStatus(activeState, props["LoadState"]),
		RawSubState: props["SubState"],
	}

	if st.Status == StatusRunning || st.Status == StatusStopping {
		if pid, err := strconv.Atoi(props["MainPID"]); err == nil && pid > 0 {
			st.PID = &pid
		}
		if enter, err := time.Parse(activeEnterLayout, props["ActiveEnterTimestamp"]); err == nil {
			if secs := c.now().Sub(enter).Seconds(); secs >= 0 {
				st.UptimeSeconds = &secs
			}
		}
		if mem, err := strconv.ParseUint(props["MemoryCurrent"], 10, 64); err == nil {
			st.MemoryBytes = &mem
		}
	}

	return st, nil
}

// Control applies a supervisor verb to one (channel, kind) process, waits for
// the settle delay and returns a fresh probe of the resulting state.
//
// No retry: a failed verb surfaces immediately as *ProcessControlError.
func (c *Controller) Control(ctx context.Context, channelID int64, kind unit.Kind, action unit.Action) (st ServiceRuntimeState, err error) {
	defer func() { c.mtr.ObserveControl(kind.String(), action.String(), err) }()

	// Reject bad verbs before any external call.
	if _, err = unit.ParseAction(action.String()); err != nil {
		return ServiceRuntimeState{}, err
	}
	unitName, err := c.resolver.Resolve(channelID, kind)
	if err != nil {
		return ServiceRuntimeState{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.ControlTimeout)
	defer cancel()

	res, err := c.runner.Run(callCtx, "systemctl", action.String(), unitName)
	if err != nil {
		return ServiceRuntimeState{}, &ProcessControlError{Unit: unitName, Op: action.String(), Err: err}
	}
	if res.ExitCode != 0 {
		return ServiceRuntimeState{}, &ProcessControlError{Unit: unitName, Op: action.String(), Diagnostic: strings.TrimSpace(string(res.Stderr))}
	}

	c.log.Debug("control applied",
		zap.String("unit", unitName),
		zap.String("action", action.String()))

	select {
	case <-ctx.Done():
		return ServiceRuntimeState{}, &ProcessControlError{Unit: unitName, Op: action.String(), Err: ctx.Err()}
	case <-time.After(c.opts.Settle):
	}

	return c.Probe(ctx, channelID, kind)
}

// Restart is the narrow surface the config applier depends on.
func (c *Controller) Restart(ctx context.Context, channelID int64, kind unit.Kind) error {
	_, err := c.Control(ctx, channelID, kind, unit.ActionRestart)
	return err
}

// parseProperties decodes systemctl show "Key=Value" lines.
func parseProperties(out []byte) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || key == "" {
			continue
		}
		props[key] = value
	}
	return props
}

// mapStatus normalizes the is-active reading and LoadState into a Status.
// LoadState "not-found" wins: the unit does not exist at all, which is a
// configuration error distinct from a stopped unit.
func mapStatus(activeState, loadState string) Status {
	if loadState == "not-found" {
		return StatusNotFound
	}
	switch activeState {
	case "active":
		return StatusRunning
	case "activating":
		return StatusStarting
	case "deactivating":
		return StatusStopping
	case "failed":
		return StatusError
	case "":
		return StatusUnknown
	default:
		return StatusStopped
	}
}

// Package systemd drives per-channel managed processes through systemctl and
// reads their logs through journalctl. All external invocations go through an
// execx.Runner so the probe/control logic itself stays pure.
package systemd

import (
	"fmt"

	"github.com/edirooss/headend-server/internal/unit"
)

// Status is the normalized runtime state of one managed process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
	StatusNotFound Status = "not_found" // unit does not exist: configuration error, not a normal stop
	StatusUnknown  Status = "unknown"
)

// ServiceRuntimeState is produced fresh on every probe and never cached.
//
// PID is present iff the process is running or stopping. Uptime and
// MemoryBytes are omitted rather than zeroed when the supervisor does not
// report them.
type ServiceRuntimeState struct {
	ChannelID     int64     `json:"channelId"`
	Kind          unit.Kind `json:"kind"`
	Unit          string    `json:"unit"`
	Status        Status    `json:"status"`
	PID           *int      `json:"pid,omitempty"`
	UptimeSeconds *float64  `json:"uptimeSeconds,omitempty"`
	MemoryBytes   *uint64   `json:"memoryBytes,omitempty"`
	RawSubState   string    `json:"rawSubState,omitempty"`
}

// ProcessControlError reports a failed supervisor call, carrying the raw
// diagnostic text from systemctl.
type ProcessControlError struct {
	Unit       string
	Op         string
	Diagnostic string
	Err        error
}

func (e *ProcessControlError) Error() string {
	msg := fmt.Sprintf("systemctl %s %s failed", e.Op, e.Unit)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessControlError) Unwrap() error { return e.Err }

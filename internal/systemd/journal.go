package systemd

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/edirooss/headend-server/internal/execx"
	"go.uber.org/zap"
)

// LogEntry is one journal record, normalized for the API.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	PID       int       `json:"pid,omitempty"`
}

// LogQuery filters a journal read.
type LogQuery struct {
	Lines    int    // max entries, default 100
	Since    string // journalctl -S value, e.g. "-1h" or an absolute timestamp
	Priority string // journalctl -p value, e.g. "warning" or "4"
}

// JournalReader tails unit logs via journalctl's JSON output.
type JournalReader struct {
	log     *zap.Logger
	runner  execx.Runner
	timeout time.Duration
}

func NewJournalReader(log *zap.Logger, runner execx.Runner) *JournalReader {
	return &JournalReader{
		log:     log.Named("journal_reader"),
		runner:  runner,
		timeout: 10 * time.Second,
	}
}

// Tail returns the most recent journal entries for a unit, oldest first.
func (j *JournalReader) Tail(ctx context.Context, unitName string, q LogQuery) ([]LogEntry, error) {
	if q.Lines <= 0 {
		q.Lines = 100
	}

	args := []string{"-u", unitName, "-n", strconv.Itoa(q.Lines), "-o", "json", "--no-pager"}
	if q.Since != "" {
		args = append(args, "-S", q.Since)
	}
	if q.Priority != "" {
		args = append(args, "-p", q.Priority)
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	res, err := j.runner.Run(ctx, "journalctl", args...)
	if err != nil {
		return nil, &ProcessControlError{Unit: unitName, Op: "journalctl", Err: err}
	}
	if res.ExitCode != 0 {
		return nil, &ProcessControlError{Unit: unitName, Op: "journalctl", Diagnostic: strings.TrimSpace(string(res.Stderr))}
	}

	// One JSON object per line; malformed lines are skipped, not fatal.
	entries := make([]LogEntry, 0, q.Lines)
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rec struct {
			RealtimeTimestamp string `json:"__REALTIME_TIMESTAMP"`
			Message           string `json:"MESSAGE"`
			Priority          string `json:"PRIORITY"`
			PID               string `json:"_PID"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			j.log.Debug("skipping malformed journal line", zap.Error(err))
			continue
		}

		entry := LogEntry{
			Message: rec.Message,
			Level:   priorityLevel(rec.Priority),
		}
		if usec, err := strconv.ParseInt(rec.RealtimeTimestamp, 10, 64); err == nil {
			entry.Timestamp = time.UnixMicro(usec)
		}
		if pid, err := strconv.Atoi(rec.PID); err == nil {
			entry.PID = pid
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// priorityLevel maps syslog priorities onto log levels.
func priorityLevel(priority string) string {
	p, err := strconv.Atoi(priority)
	if err != nil {
		return "info"
	}
	switch {
	case p <= 3:
		return "error"
	case p <= 4:
		return "warn"
	case p <= 6:
		return "info"
	default:
		return "debug"
	}
}

package systemd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/edirooss/headend-server/internal/execx"
	"go.uber.org/zap"
)

// canned journal output: three well-formed records and one broken line.
const journalOutput = `{"__REALTIME_TIMESTAMP":"1756123200000000","MESSAGE":"listener bound","PRIORITY":"6","_PID":"4242"}
{"__REALTIME_TIMESTAMP":"1756123201000000","MESSAGE":"packet loss above threshold","PRIORITY":"4","_PID":"4242"}
not json at all
{"__REALTIME_TIMESTAMP":"1756123202000000","MESSAGE":"connection reset","PRIORITY":"3","_PID":"4242"}
`

type journalRunner struct {
	lastArgs []string
	res      execx.Result
}

func (f *journalRunner) Run(_ context.Context, _ string, args ...string) (execx.Result, error) {
	f.lastArgs = args
	return f.res, nil
}

func TestTailParsesEntries(t *testing.T) {
	runner := &journalRunner{res: execx.Result{Stdout: []byte(journalOutput)}}
	j := NewJournalReader(zap.NewNop(), runner)

	entries, err := j.Tail(context.Background(), "srt-rx@7.service", LogQuery{Lines: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3 (malformed line skipped)", len(entries))
	}

	first := entries[0]
	if first.Message != "listener bound" {
		t.Errorf("message = %q", first.Message)
	}
	if first.Level != "info" {
		t.Errorf("level = %q, want info", first.Level)
	}
	if got := first.Timestamp; !got.Equal(time.UnixMicro(1756123200000000)) {
		t.Errorf("timestamp = %v", got)
	}
	if first.PID != 4242 {
		t.Errorf("pid = %d", first.PID)
	}

	if entries[1].Level != "warn" {
		t.Errorf("priority 4 mapped to %q, want warn", entries[1].Level)
	}
	if entries[2].Level != "error" {
		t.Errorf("priority 3 mapped to %q, want error", entries[2].Level)
	}
}

func TestTailArguments(t *testing.T) {
	runner := &journalRunner{}
	j := NewJournalReader(zap.NewNop(), runner)

	if _, err := j.Tail(context.Background(), "recorder@3.service", LogQuery{Lines: 20, Since: "-1h", Priority: "warning"}); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(runner.lastArgs, " ")
	want := "-u recorder@3.service -n 20 -o json --no-pager -S -1h -p warning"
	if got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestTailDefaultsLineCount(t *testing.T) {
	runner := &journalRunner{}
	j := NewJournalReader(zap.NewNop(), runner)

	if _, err := j.Tail(context.Background(), "srt-rx@7.service", LogQuery{}); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(runner.lastArgs, " ")
	if !strings.Contains(got, "-n 100") {
		t.Errorf("args = %q, want default -n 100", got)
	}
}

func TestPriorityLevel(t *testing.T) {
	cases := map[string]string{
		"0":       "error",
		"3":       "error",
		"4":       "warn",
		"5":       "info",
		"6":       "info",
		"7":       "debug",
		"garbage": "info",
	}
	for prio, want := range cases {
		if got := priorityLevel(prio); got != want {
			t.Errorf("priorityLevel(%q) = %q, want %q", prio, got, want)
		}
	}
}

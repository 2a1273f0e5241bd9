// Package execx abstracts external tool invocation behind a narrow runner
// interface so supervisor and analyzer logic stays unit-testable.
package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result captures one finished command invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes an external command and returns its captured output.
//
// A non-zero exit is NOT an error: it is reported through Result.ExitCode so
// callers can interpret it (systemctl is-active exits non-zero for perfectly
// valid "inactive" readings). Errors are reserved for failures to run at all:
// missing binary, context timeout/cancellation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs real binaries via os/exec.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner { return &ExecRunner{} }

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	res := Result{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}

	if err != nil {
		// Prefer the context error so callers can distinguish timeouts from
		// command failures.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

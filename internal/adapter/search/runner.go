package search

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"time"
)

// DefaultMaxOutput caps captured stdout and stderr per stream.
const DefaultMaxOutput = 4 << 20

// Command is a process invocation. Args are passed as an argv array and are
// never interpolated into a shell string.
type Command struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// RunResult is the captured outcome of a finished process.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ProcessRunner abstracts process execution.
type ProcessRunner interface {
	// Run executes cmd. A non-zero exit is reported through ExitCode with a
	// nil error; err is set only when the process could not run to completion
	// (start failure, timeout, cancellation).
	Run(ctx context.Context, cmd Command) (RunResult, error)
}

// ExecRunner runs processes on the local host.
type ExecRunner struct {
	MaxOutput int
}

// NewExecRunner creates a runner with the default output cap.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{MaxOutput: DefaultMaxOutput}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (RunResult, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = c.Env
	cmd.WaitDelay = time.Second

	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	res := RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	res.ExitCode = 1
	if isExecNotFound(err) {
		res.ExitCode = 127
	}
	return res, err
}

// cappedBuffer keeps the first limit bytes written and discards the rest
// while still reporting full writes, so the child never blocks on a pipe.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte { return b.buf.Bytes() }

func isExecNotFound(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist)
}

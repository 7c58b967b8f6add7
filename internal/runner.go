package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Command describes one external process invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   []string // appended to the inherited environment
	Stdin io.Reader
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

type CapturedResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes external commands. Streaming mode passes output through
// to the user; captured mode buffers it for parsing. A non-zero exit is
// reported through the exit code, not the error.
type Runner interface {
	RunStreaming(ctx context.Context, cmd Command) (int, error)
	RunCaptured(ctx context.Context, cmd Command) (CapturedResult, error)
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func NewExecRunner(stdout, stderr io.Writer, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = discardLogger()
	}
	return &ExecRunner{
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger.With("component", "runner"),
	}
}

func (r *ExecRunner) RunStreaming(ctx context.Context, c Command) (int, error) {
	cmd := r.build(ctx, c)
	cmd.Stdout = orDefault(r.Stdout, os.Stdout)
	cmd.Stderr = orDefault(r.Stderr, os.Stderr)

	r.Logger.Debug("running command", "cmd", c.String(), "dir", c.Dir, "mode", "streaming")
	return exitCode(cmd.Run())
}

func (r *ExecRunner) RunCaptured(ctx context.Context, c Command) (CapturedResult, error) {
	cmd := r.build(ctx, c)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Logger.Debug("running command", "cmd", c.String(), "dir", c.Dir, "mode", "captured")
	code, err := exitCode(cmd.Run())
	return CapturedResult{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, err
}

func (r *ExecRunner) build(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// FakeRunner records commands and answers them with Handler. It is safe
// for concurrent use.
type FakeRunner struct {
	Handler func(cmd Command) (CapturedResult, error)

	mu    sync.Mutex
	calls []Command
}

func (f *FakeRunner) RunStreaming(ctx context.Context, cmd Command) (int, error) {
	res, err := f.RunCaptured(ctx, cmd)
	return res.ExitCode, err
}

func (f *FakeRunner) RunCaptured(ctx context.Context, cmd Command) (CapturedResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return CapturedResult{ExitCode: -1}, err
	}
	if f.Handler == nil {
		return CapturedResult{}, nil
	}
	return f.Handler(cmd)
}

func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.calls))
	copy(out, f.calls)
	return out
}

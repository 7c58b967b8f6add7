package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	DefaultBinary  = "archivebox"
	pythonFallback = "python3"
)

type AddRequest struct {
	URL        string
	Depth      int
	Tags       []string
	IndexOnly  bool
	Extractors []string
}

// ArchiveBoxOptions configures an ArchiveBox client for one data dir.
type ArchiveBoxOptions struct {
	Binary     string
	DataDir    string
	Disabled   []string
	FlagShims  []FlagShim
	EnvShims   []EnvShim
	Logger     *slog.Logger
	NoFallback bool
}

// ArchiveBox drives the archivebox CLI inside one data directory. All
// mutations of the registry go through here.
type ArchiveBox struct {
	runner  Runner
	opts    ArchiveBoxOptions
	logger  *slog.Logger
	once    sync.Once
	compat  *Compat
	binName string
}

func NewArchiveBox(runner Runner, opts ArchiveBoxOptions) *ArchiveBox {
	if opts.FlagShims == nil {
		opts.FlagShims = DefaultFlagShims()
	}
	if opts.EnvShims == nil {
		opts.EnvShims = DefaultEnvShims()
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}

	bin := DefaultBinary
	if opts.Binary != "" {
		bin = opts.Binary
		if strings.ContainsRune(bin, filepath.Separator) {
			if abs, err := filepath.Abs(bin); err == nil {
				bin = abs
			}
		}
	}

	return &ArchiveBox{
		runner:  runner,
		opts:    opts,
		logger:  logger.With("component", "archivebox", "data_dir", opts.DataDir),
		binName: bin,
	}
}

func (a *ArchiveBox) DataDir() string {
	return a.opts.DataDir
}

// Compat detects the tool version on first use and evaluates the shim
// table once. Detection failure leaves every flag in place.
func (a *ArchiveBox) Compat(ctx context.Context) *Compat {
	a.once.Do(func() {
		v, err := a.Version(ctx)
		if err != nil {
			a.logger.Warn("could not detect archivebox version", "error", err)
		}
		a.compat = NewCompat(v, a.opts.FlagShims, a.opts.EnvShims, a.opts.Disabled)
		a.logger.Debug("archivebox compatibility", "version", v.String())
	})
	return a.compat
}

func (a *ArchiveBox) Version(ctx context.Context) (ToolVersion, error) {
	res, err := a.captured(ctx, "version", "--quiet")
	if err != nil {
		return ToolVersion{}, err
	}
	return ParseToolVersion(res.Stdout + "\n" + res.Stderr)
}

func (a *ArchiveBox) Init(ctx context.Context) error {
	if err := os.MkdirAll(a.opts.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return a.streaming(ctx, "init", "--force")
}

// EnsureInit initializes the data dir unless an index already exists.
func (a *ArchiveBox) EnsureInit(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(a.opts.DataDir, "index.sqlite3")); err == nil {
		return nil
	}
	a.logger.Info("initializing archivebox data dir")
	return a.Init(ctx)
}

func (a *ArchiveBox) Add(ctx context.Context, req AddRequest) error {
	args := AddArgs(req)
	a.logger.Info("archiving url", "url", req.URL, "depth", req.Depth, "tags", len(req.Tags))
	return a.streaming(ctx, args...)
}

// AddArgs renders the archivebox add invocation for req.
func AddArgs(req AddRequest) []string {
	args := []string{"add", "--depth=" + strconv.Itoa(req.Depth)}
	if req.IndexOnly {
		args = append(args, "--index-only")
	}
	if len(req.Tags) > 0 {
		args = append(args, "--tag", strings.Join(req.Tags, ","))
	}
	if len(req.Extractors) > 0 {
		args = append(args, "--extract", strings.Join(req.Extractors, ","))
	}
	return append(args, req.URL)
}

// Remove deletes snapshots by timestamp, including their data dirs.
func (a *ArchiveBox) Remove(ctx context.Context, ids []SnapshotID) error {
	if len(ids) == 0 {
		return nil
	}
	args := []string{"remove", "--yes", "--delete", "--filter-type=timestamp"}
	for _, id := range ids {
		args = append(args, id.Timestamp)
	}

	if _, err := a.captured(ctx, args...); err != nil {
		return err
	}
	a.logger.Info("removed snapshots", "count", len(ids))
	return nil
}

func (a *ArchiveBox) Status(ctx context.Context) (string, error) {
	res, err := a.captured(ctx, "status")
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func (a *ArchiveBox) Server(ctx context.Context, addr string) error {
	return a.streaming(ctx, "server", addr)
}

func (a *ArchiveBox) streaming(ctx context.Context, args ...string) error {
	cmd := a.command(ctx, args)
	code, err := a.runner.RunStreaming(ctx, cmd)
	if a.shouldFallback(err) {
		a.logger.Warn("binary not found, falling back to python module", "binary", a.binName)
		code, err = a.runner.RunStreaming(ctx, fallbackCommand(cmd))
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	if code != 0 {
		return &ExitError{Command: cmd.String(), Code: code}
	}
	return nil
}

func (a *ArchiveBox) captured(ctx context.Context, args ...string) (CapturedResult, error) {
	var cmd Command
	if args[0] == "version" {
		// version detection must not recurse into Compat
		cmd = Command{Name: a.binName, Args: args, Dir: a.opts.DataDir}
	} else {
		cmd = a.command(ctx, args)
	}

	res, err := a.runner.RunCaptured(ctx, cmd)
	if a.shouldFallback(err) {
		a.logger.Warn("binary not found, falling back to python module", "binary", a.binName)
		res, err = a.runner.RunCaptured(ctx, fallbackCommand(cmd))
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", args[0], err)
	}
	if res.ExitCode != 0 {
		return res, &ExitError{Command: cmd.String(), Code: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

func (a *ArchiveBox) command(ctx context.Context, args []string) Command {
	compat := a.Compat(ctx)
	return Command{
		Name: a.binName,
		Args: compat.Apply(args),
		Dir:  a.opts.DataDir,
		Env:  compat.Env(),
	}
}

func (a *ArchiveBox) shouldFallback(err error) bool {
	return err != nil && !a.opts.NoFallback && errors.Is(err, exec.ErrNotFound)
}

func fallbackCommand(c Command) Command {
	c.Args = append([]string{"-m", DefaultBinary}, c.Args...)
	c.Name = pythonFallback
	return c
}

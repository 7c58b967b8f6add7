package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/4thel00z/archivist/internal"
	"github.com/charmbracelet/fang"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx := context.Background()

	if tryExternalCommand(ctx) {
		return
	}

	app := newApp()
	rootCmd := NewRootCmd(version, app)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}

func tryExternalCommand(ctx context.Context) bool {
	inv, ok := parseExternalArgs(os.Args[1:])
	if !ok {
		return false
	}
	cmd := inv.name

	if _, err := findExternal(cmd); err != nil {
		return false
	}

	if err := executeExternal(ctx, inv, version); err != nil {
		fmt.Fprintf(os.Stderr, "archivist %s: %v\n", cmd, err)
		os.Exit(1)
	}

	return true
}

// app holds everything built from the loaded config. It is filled in by
// the root command before any subcommand runs.
type app struct {
	configPath string
	cfg        *internal.Config
	logger     *slog.Logger
	runner     internal.Runner
	metrics    *internal.Metrics
	archiveBox func(internal.Scope) *internal.ArchiveBox
	uc         *internal.UseCases
	overrides  loadOptions
	loaded     bool
}

func newApp() *app {
	return &app{}
}

type loadOptions struct {
	configPath string
	dataDir    string
	binary     string
	logLevel   string
	stdout     io.Writer
	stderr     io.Writer
}

// load reads the config and wires the use cases. Command-line overrides
// are applied to the config before anything is built from it.
func (a *app) load(opts loadOptions) error {
	cfg, err := readConfig(opts)
	if err != nil {
		return err
	}

	logger := internal.NewLogger(cfg.Logging, opts.stderr)
	runner := internal.NewExecRunner(opts.stdout, opts.stderr, logger)
	a.overrides = opts
	a.wire(opts.configPath, cfg, runner, logger)
	return nil
}

// reload re-reads the config file and rebuilds the use cases. The runner,
// logger and metrics survive the reload.
func (a *app) reload() error {
	opts := a.overrides
	opts.configPath = a.configPath
	cfg, err := readConfig(opts)
	if err != nil {
		return err
	}
	a.wire(a.configPath, cfg, a.runner, a.logger)
	return nil
}

func readConfig(opts loadOptions) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dataDir != "" {
		cfg.ArchiveBox.DataDir = opts.dataDir
	}
	if opts.binary != "" {
		cfg.ArchiveBox.Binary = opts.binary
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, nil
}

func (a *app) wire(configPath string, cfg *internal.Config, runner internal.Runner, logger *slog.Logger) {
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}
	a.configPath = configPath
	a.cfg = cfg
	a.logger = logger
	a.runner = runner
	if a.metrics == nil {
		a.metrics = internal.NewMetrics(nil)
	}
	a.archiveBox = internal.ArchiveBoxFactory(cfg, runner, logger)

	archiveBox := a.archiveBox
	a.uc = internal.NewUseCases(internal.Deps{
		Config:      cfg,
		Resolver:    internal.NewScopeResolver(cfg.ArchiveBox.DataDir),
		ArchiverFor: func(s internal.Scope) internal.Archiver { return archiveBox(s) },
		Metrics:     a.metrics,
		Logger:      logger,
	})
	a.loaded = true
}

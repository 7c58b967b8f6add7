package main

import (
	"bytes"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/4thel00z/archivist/internal"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd("1.0.0", nil)

	if cmd == nil {
		t.Fatal("NewRootCmd returned nil")
	}

	if cmd.Use != "archivist" {
		t.Errorf("expected Use='archivist', got %q", cmd.Use)
	}

	if cmd.Version != "1.0.0" {
		t.Errorf("expected Version='1.0.0', got %q", cmd.Version)
	}
}

func TestRootCmdHasFlags(t *testing.T) {
	cmd := NewRootCmd("1.0.0", nil)

	flags := []string{"config", "data-dir", "binary", "log-level", "json"}
	for _, name := range flags {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			t.Errorf("expected persistent flag %q to exist", name)
		}
	}
}

func TestRootCmdSubcommands(t *testing.T) {
	cmd := NewRootCmd("dev", newApp())

	want := []string{"init", "add", "bulk", "list", "status", "cleanup", "nearest", "compare", "tags", "schedule", "daemon", "log", "server"}
	for _, name := range want {
		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestRootCmdLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := internal.DefaultConfig()
	cfg.ArchiveBox.DataDir = filepath.Join(dir, "data")
	cfg.Sites = []internal.Site{{Name: "Alpha", URL: "https://a.test"}}
	path := filepath.Join(dir, "sites.yaml")
	if err := internal.SaveConfig(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	a := newApp()
	cmd := NewRootCmd("dev", a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", path, "--data-dir", filepath.Join(dir, "override"), "tags", "alpha"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !a.loaded {
		t.Fatal("expected app to be loaded")
	}
	if a.cfg.ArchiveBox.DataDir != filepath.Join(dir, "override") {
		t.Errorf("expected --data-dir override, got %q", a.cfg.ArchiveBox.DataDir)
	}
	if a.configPath != path {
		t.Errorf("expected config path %q, got %q", path, a.configPath)
	}
}

// newTestApp wires an app against a temp data dir and a runner that never
// shells out.
func newTestApp(t *testing.T, sites ...internal.Site) (*app, *internal.FakeRunner) {
	t.Helper()
	dir := t.TempDir()
	cfg := internal.DefaultConfig()
	cfg.ArchiveBox.DataDir = dir
	cfg.Sites = sites

	runner := &internal.FakeRunner{}
	a := newApp()
	a.wire(filepath.Join(dir, "sites_config.yaml"), cfg, runner, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return a, runner
}

func runCmd(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test", a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const indexSchema = `
CREATE TABLE core_snapshot (id TEXT PRIMARY KEY, url TEXT NOT NULL, timestamp TEXT NOT NULL, title TEXT);
CREATE TABLE core_tag (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE core_snapshot_tags (id INTEGER PRIMARY KEY, snapshot_id TEXT NOT NULL, tag_id INTEGER NOT NULL);`

// writeIndex creates a registry index holding one snapshot per timestamp,
// all of url and tagged with tag.
func writeIndex(t *testing.T, scope internal.Scope, url, tag string, timestamps ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", scope.IndexPath())
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(indexSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO core_tag (id, name) VALUES (1, ?)`, tag); err != nil {
		t.Fatalf("insert tag: %v", err)
	}
	for i, ts := range timestamps {
		id := ts
		if _, err := db.Exec(`INSERT INTO core_snapshot (id, url, timestamp, title) VALUES (?, ?, ?, ?)`, id, url, ts, "snap"); err != nil {
			t.Fatalf("insert snapshot: %v", err)
		}
		if _, err := db.Exec(`INSERT INTO core_snapshot_tags (id, snapshot_id, tag_id) VALUES (?, ?, 1)`, i+1, id); err != nil {
			t.Fatalf("insert snapshot tag: %v", err)
		}
	}
}

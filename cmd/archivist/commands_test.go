package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/4thel00z/archivist/internal"
)

func TestTagsCmd(t *testing.T) {
	a, _ := newTestApp(t, internal.Site{Name: "Acme Shop", URL: "https://acme.test", Client: "Acme"})

	out, err := runCmd(t, a, "tags", "acme-shop", "--at", "2025-03-15T10:00:00Z")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := "site-slug\nsite:Acme Shop\nacme-shop-20250315100000\nclient:Acme\nsnapshot-2025-03\n"
	if out != want {
		t.Errorf("unexpected tags:\n%s", out)
	}

	if _, err := runCmd(t, a, "tags", "nobody"); err == nil {
		t.Error("expected error for unknown site")
	}
}

func TestListCmd(t *testing.T) {
	a, _ := newTestApp(t)
	writeIndex(t, a.uc.Resolver.Shared(), "https://a.test", "snapshot-2020-01", "1578182400", "1579478400")

	out, err := runCmd(t, a, "list")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "2020-01-05 00:00  1578182400  https://a.test  [snapshot-2020-01]" {
		t.Errorf("unexpected line %q", lines[0])
	}

	out, err = runCmd(t, a, "list", "--json", "--limit", "1")
	if err != nil {
		t.Fatalf("execute json: %v", err)
	}
	var views []internal.SnapshotView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(views) != 1 || views[0].Timestamp != "1579478400" {
		t.Errorf("expected newest snapshot only, got %+v", views)
	}

	out, err = runCmd(t, a, "list", "--format", "csv")
	if err != nil {
		t.Fatalf("execute csv: %v", err)
	}
	if !strings.HasPrefix(out, "timestamp,time,url,title,tags,scope\n") {
		t.Errorf("missing csv header: %q", out)
	}

	if _, err := runCmd(t, a, "list", "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestAddCmdDefaultDepth(t *testing.T) {
	a, runner := newTestApp(t)

	if _, err := runCmd(t, a, "add", "https://other.test"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := runCmd(t, a, "add", "https://flat.test", "--depth", "0"); err != nil {
		t.Fatalf("execute with depth: %v", err)
	}

	var adds []string
	for _, c := range runner.Calls() {
		if len(c.Args) > 0 && c.Args[0] == "add" {
			adds = append(adds, strings.Join(c.Args, " "))
		}
	}
	if len(adds) != 2 {
		t.Fatalf("expected 2 add calls, got %v", adds)
	}
	if !strings.Contains(adds[0], "--depth=1") {
		t.Errorf("expected configured default depth, got %q", adds[0])
	}
	if !strings.Contains(adds[1], "--depth=0") {
		t.Errorf("expected explicit depth, got %q", adds[1])
	}
}

func TestCleanupCmdDryRun(t *testing.T) {
	a, runner := newTestApp(t)
	writeIndex(t, a.uc.Resolver.Shared(), "https://a.test", "snapshot-2020-01", "1578182400", "1579478400")

	out, err := runCmd(t, a, "cleanup", "--dry-run", "--days", "30")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "would delete 1, keeping 1 monthly firsts") {
		t.Errorf("unexpected summary: %q", out)
	}
	if !strings.Contains(out, "1579478400  https://a.test") {
		t.Errorf("expected deleted snapshot in output: %q", out)
	}
	if len(runner.Calls()) != 0 {
		t.Errorf("dry run must not call archivebox, got %v", runner.Calls())
	}
}

func TestCleanupCmdDeletes(t *testing.T) {
	a, runner := newTestApp(t)
	writeIndex(t, a.uc.Resolver.Shared(), "https://a.test", "snapshot-2020-01", "1578182400", "1579478400")

	if _, err := runCmd(t, a, "cleanup", "--days", "30", "--keep-monthly=false"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var removed bool
	for _, c := range runner.Calls() {
		args := strings.Join(c.Args, " ")
		if strings.Contains(args, "remove") && strings.Contains(args, "1578182400") && strings.Contains(args, "1579478400") {
			removed = true
		}
	}
	if !removed {
		t.Errorf("expected a remove call for both snapshots, got %v", runner.Calls())
	}
}

func TestNearestCmd(t *testing.T) {
	a, _ := newTestApp(t, internal.Site{Name: "Alpha", URL: "https://a.test"})
	writeIndex(t, a.uc.Resolver.Shared(), "https://a.test", "snapshot-2020-01", "1578182400", "1579478400")

	out, err := runCmd(t, a, "nearest", "alpha", "--month", "2020-03", "--server-base", "http://archive.local")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != "http://archive.local/archive/1579478400/" {
		t.Errorf("unexpected link %q", out)
	}

	out, err = runCmd(t, a, "nearest", "https://missing.test")
	if err != nil {
		t.Fatalf("execute missing: %v", err)
	}
	if !strings.Contains(out, "No snapshots found for https://missing.test") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestScheduleShowCmd(t *testing.T) {
	a, _ := newTestApp(t)
	a.cfg.Schedule.Cleanup = ""

	out, err := runCmd(t, a, "schedule")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "archive  0 2 1 * *") {
		t.Errorf("expected archive schedule, got %q", out)
	}
	if !strings.Contains(out, "cleanup  disabled") {
		t.Errorf("expected disabled cleanup, got %q", out)
	}
}

func TestCrontabLines(t *testing.T) {
	cfg := internal.DefaultConfig()
	shared := internal.NewScopeResolver("/srv/archivebox").Shared()

	lines := crontabLines("/usr/local/bin/archivist", "/etc/archivist.yaml", cfg, shared)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := "0 2 1 * * /usr/local/bin/archivist --config /etc/archivist.yaml schedule run >> /srv/archivebox/schedule.log 2>&1"
	if lines[0] != want {
		t.Errorf("expected %q, got %q", want, lines[0])
	}
	if !strings.HasPrefix(lines[1], "0 4 * * 0 ") || !strings.Contains(lines[1], " cleanup >> ") {
		t.Errorf("unexpected cleanup line %q", lines[1])
	}
}

func TestInitCmd(t *testing.T) {
	a, runner := newTestApp(t)

	out, err := runCmd(t, a, "init")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Wrote example config to "+a.configPath) {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(a.uc.Resolver.Shared().URLsFile()); err != nil {
		t.Errorf("expected urls.txt: %v", err)
	}

	var initialized bool
	for _, c := range runner.Calls() {
		if len(c.Args) > 0 && strings.Contains(strings.Join(c.Args, " "), "init") {
			initialized = true
		}
	}
	if !initialized {
		t.Errorf("expected an init call, got %v", runner.Calls())
	}

	out, err = runCmd(t, a, "init", "--config-only")
	if err != nil {
		t.Fatalf("execute again: %v", err)
	}
	if !strings.Contains(out, "Config already exists at") {
		t.Errorf("expected existing config notice, got %q", out)
	}
}

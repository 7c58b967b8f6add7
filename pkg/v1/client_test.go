package v1

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/4thel00z/archivist/internal"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func setupClientTest(t *testing.T, opts ...Option) *Client {
	t.Helper()
	dir := t.TempDir()

	cfg := internal.DefaultConfig()
	cfg.ArchiveBox.DataDir = filepath.Join(dir, "data")
	cfg.Sites = []internal.Site{{Name: "Acme", URL: "https://acme.test", Client: "Acme Corp"}}
	path := filepath.Join(dir, "sites_config.yaml")
	if err := internal.SaveConfig(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	opts = append([]Option{
		WithConfigFile(path),
		WithClock(func() time.Time { return day("2025-01-01") }),
	}, opts...)
	client, err := New(opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientPlan(t *testing.T) {
	client := setupClientTest(t)

	snaps := []Snapshot{
		{URL: "https://example.com", Timestamp: day("2024-12-15")},
		{URL: "https://example.com", Timestamp: day("2024-01-20")},
		{URL: "https://example.com", Timestamp: day("2024-07-01")},
		{URL: "https://example.com", Timestamp: day("2024-01-05")},
	}

	plan, err := client.Plan(snaps, RetentionPolicy{MaxAgeDays: 180, KeepMonthlyFirst: true})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if !plan.Cutoff.Equal(day("2024-07-05")) {
		t.Errorf("expected cutoff 2024-07-05, got %s", plan.Cutoff)
	}
	if len(plan.Delete) != 1 || !plan.Delete[0].Timestamp.Equal(day("2024-01-20")) {
		t.Errorf("expected only 2024-01-20 deleted, got %+v", plan.Delete)
	}
	if len(plan.Exempt) != 2 {
		t.Errorf("expected 2 monthly exemptions, got %d", len(plan.Exempt))
	}

	if _, err := client.Plan(snaps, RetentionPolicy{MaxAgeDays: -1}); err == nil {
		t.Error("expected error for negative max age")
	}
}

func TestClientResolve(t *testing.T) {
	client := setupClientTest(t, WithServerBase("http://archive.local"))

	snaps := []Snapshot{
		{URL: "https://example.com", ID: "1704412800", Timestamp: day("2024-01-05")},
		{URL: "https://example.com", ID: "1710892800", Timestamp: day("2024-03-20")},
	}

	link, err := client.Resolve(snaps, "2024-02")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !link.Found {
		t.Fatal("expected a snapshot")
	}
	if link.URL != "http://archive.local/archive/1710892800/" {
		t.Errorf("expected the later snapshot on a tie, got %q", link.URL)
	}
	if link.Distance != 1 {
		t.Errorf("expected distance 1, got %d", link.Distance)
	}

	link, err = client.Resolve(nil, "2024-02")
	if err != nil {
		t.Fatalf("resolve empty: %v", err)
	}
	if link.Found {
		t.Error("expected no snapshot for an empty list")
	}

	if _, err := client.Resolve(snaps, "Feb 2024"); err == nil {
		t.Error("expected error for malformed month")
	}
}

func TestClientResolveLocalPath(t *testing.T) {
	dataDir := t.TempDir()
	client := setupClientTest(t, WithDataDir(dataDir))

	link, err := client.Resolve([]Snapshot{
		{URL: "https://example.com", ID: "1704412800", Timestamp: day("2024-01-05")},
	}, "2024-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if link.URL != "/archive/1704412800/" {
		t.Errorf("expected relative link, got %q", link.URL)
	}
	want := filepath.Join(dataDir, "archive", "1704412800")
	if link.LocalPath != want {
		t.Errorf("expected local path %q, got %q", want, link.LocalPath)
	}
}

func TestClientTags(t *testing.T) {
	client := setupClientTest(t)

	tags, err := client.Tags("acme")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	want := []string{"site-slug", "site:Acme", "acme-20250101000000", "client:Acme Corp", "snapshot-2025-01"}
	if len(tags) != len(want) {
		t.Fatalf("expected %v, got %v", want, tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tag %d: expected %q, got %q", i, want[i], tags[i])
		}
	}

	if _, err := client.Tags("unknown"); err == nil {
		t.Error("expected error for unknown site")
	}
}

func TestClientUninitializedArchive(t *testing.T) {
	client := setupClientTest(t)
	ctx := context.Background()

	snaps, err := client.Snapshots(ctx, "https://acme.test")
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("expected no snapshots, got %d", len(snaps))
	}

	link, err := client.NearestMonthsAgo(ctx, "acme", 3)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if link.Found {
		t.Error("expected nothing found")
	}
	if link.Target != "2024-10" {
		t.Errorf("expected target 2024-10, got %q", link.Target)
	}

	if _, err := client.Nearest(ctx, "acme", "later"); err == nil {
		t.Error("expected error for malformed month")
	}
}

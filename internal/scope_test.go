package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScopeResolverShared(t *testing.T) {
	root := t.TempDir()
	scope := NewScopeResolver(root).Shared()

	if scope.Type != ScopeShared {
		t.Errorf("expected ScopeShared, got %q", scope.Type)
	}
	if scope.IndexPath() != filepath.Join(root, "index.sqlite3") {
		t.Errorf("unexpected index path %q", scope.IndexPath())
	}
	if scope.String() != "shared" {
		t.Errorf("expected shared, got %q", scope.String())
	}
}

func TestScopeResolverPerSite(t *testing.T) {
	root := t.TempDir()
	r := NewScopeResolver(root)

	scope := r.For(Site{Name: "Acme Corp", URL: "https://acme.test", PerSite: true})
	if scope.DataDir != filepath.Join(root, "sites", "acme-corp") {
		t.Errorf("unexpected data dir %q", scope.DataDir)
	}
	if scope.String() != "site:acme-corp" {
		t.Errorf("unexpected name %q", scope.String())
	}

	shared := r.For(Site{Name: "Blog", URL: "https://blog.test"})
	if shared.Type != ScopeShared {
		t.Errorf("site without per_site should use the shared scope")
	}
}

func TestScopeResolverAll(t *testing.T) {
	r := NewScopeResolver(t.TempDir())
	scopes := r.All([]Site{
		{Name: "zeta", URL: "https://z", PerSite: true},
		{Name: "plain", URL: "https://p"},
		{Name: "alpha", URL: "https://a", PerSite: true},
	})

	want := []string{"shared", "site:alpha", "site:zeta"}
	if len(scopes) != len(want) {
		t.Fatalf("expected %d scopes, got %d", len(want), len(scopes))
	}
	for i, s := range scopes {
		if s.String() != want[i] {
			t.Errorf("scope %d: expected %q, got %q", i, want[i], s.String())
		}
	}
}

func TestScopeInitialized(t *testing.T) {
	scope := NewScopeResolver(t.TempDir()).Shared()
	if scope.Initialized() {
		t.Fatal("empty dir should not be initialized")
	}
	if err := os.WriteFile(scope.IndexPath(), nil, 0644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if !scope.Initialized() {
		t.Fatal("expected initialized after index exists")
	}
}

func TestScopeResolverEnvVars(t *testing.T) {
	root := t.TempDir()
	env := NewScopeResolver(root).EnvVars("/etc/sites.yaml", "1.2.3")

	if env["ARCHIVIST_DATA_DIR"] != root {
		t.Errorf("unexpected data dir %q", env["ARCHIVIST_DATA_DIR"])
	}
	if env["ARCHIVIST_CONFIG"] != "/etc/sites.yaml" || env["ARCHIVIST_VERSION"] != "1.2.3" {
		t.Errorf("unexpected env %v", env)
	}
}

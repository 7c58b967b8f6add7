package internal

import (
	"os"
	"path/filepath"
	"sort"
)

type ScopeType string

const (
	ScopeShared ScopeType = "shared"
	ScopeSite   ScopeType = "site"
)

// Scope is one registry instance: the shared data dir or a per-site one.
type Scope struct {
	Type    ScopeType
	Name    string // site slug for per-site scopes
	DataDir string
}

func (s Scope) IndexPath() string {
	return filepath.Join(s.DataDir, "index.sqlite3")
}

func (s Scope) URLsFile() string {
	return filepath.Join(s.DataDir, "urls.txt")
}

func (s Scope) ReportsPath() string {
	return filepath.Join(s.DataDir, "reports")
}

func (s Scope) ScheduleLog() string {
	return filepath.Join(s.DataDir, "schedule.log")
}

func (s Scope) Initialized() bool {
	_, err := os.Stat(s.IndexPath())
	return err == nil
}

func (s Scope) String() string {
	if s.Type == ScopeSite {
		return "site:" + s.Name
	}
	return string(s.Type)
}

type ScopeResolver struct {
	root string
}

func NewScopeResolver(root string) *ScopeResolver {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &ScopeResolver{root: root}
}

func (r *ScopeResolver) Shared() Scope {
	return Scope{Type: ScopeShared, DataDir: r.root}
}

// For returns the registry instance that holds site's snapshots.
func (r *ScopeResolver) For(site Site) Scope {
	if !site.PerSite {
		return r.Shared()
	}
	slug := site.ResolvedSlug()
	return Scope{
		Type:    ScopeSite,
		Name:    slug,
		DataDir: filepath.Join(r.root, "sites", slug),
	}
}

// All lists the shared scope followed by every per-site scope, by slug.
func (r *ScopeResolver) All(sites []Site) []Scope {
	scopes := []Scope{r.Shared()}
	var perSite []Scope
	for _, s := range sites {
		if s.PerSite {
			perSite = append(perSite, r.For(s))
		}
	}
	sort.Slice(perSite, func(i, j int) bool { return perSite[i].Name < perSite[j].Name })
	return append(scopes, perSite...)
}

// EnvVars is the environment handed to archivist-* plugins.
func (r *ScopeResolver) EnvVars(configPath, version string) map[string]string {
	bin, _ := os.Executable()
	return map[string]string{
		"ARCHIVIST_DATA_DIR": r.root,
		"ARCHIVIST_CONFIG":   configPath,
		"ARCHIVIST_VERSION":  version,
		"ARCHIVIST_BIN":      bin,
	}
}

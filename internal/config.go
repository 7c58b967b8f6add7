package internal

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "sites_config.yaml"
	DefaultPort       = 8001
)

type Site struct {
	Name            string   `yaml:"name"`
	URL             string   `yaml:"url"`
	Client          string   `yaml:"client,omitempty"`
	Slug            string   `yaml:"slug,omitempty"`
	Tags            []string `yaml:"tags,omitempty"`
	PerSite         bool     `yaml:"per_site,omitempty"`
	Depth           *int     `yaml:"depth,omitempty"`
	ArchiveSubpages []string `yaml:"archive_subpages,omitempty"`
	MonthlySnapshot *bool    `yaml:"monthly_snapshot,omitempty"`
	Extractors      []string `yaml:"extractors,omitempty"`
}

// ResolvedSlug returns the explicit slug, or one derived from the name.
func (s Site) ResolvedSlug() string {
	if s.Slug != "" {
		return s.Slug
	}
	if slug := Slugify(s.Name); slug != "" {
		return slug
	}
	return hostSlug(s.URL)
}

func (s Site) Monthly() bool {
	return s.MonthlySnapshot == nil || *s.MonthlySnapshot
}

// SubpageURLs joins every archive_subpages entry onto the site url.
func (s Site) SubpageURLs() []string {
	base := strings.TrimRight(s.URL, "/")
	urls := make([]string, 0, len(s.ArchiveSubpages))
	for _, p := range s.ArchiveSubpages {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		urls = append(urls, base+"/"+p)
	}
	return urls
}

type ArchiveBoxConfig struct {
	DataDir    string   `yaml:"data_dir"`
	Binary     string   `yaml:"binary,omitempty"`
	ServerBase string   `yaml:"server_base,omitempty"`
	Disable    []string `yaml:"disable,omitempty"`
}

type DefaultsConfig struct {
	Depth      int      `yaml:"depth"`
	Timeout    int      `yaml:"timeout"`
	Extractors []string `yaml:"extractors,omitempty"`
}

type ScheduleConfig struct {
	Archive string        `yaml:"archive,omitempty"`
	Cleanup string        `yaml:"cleanup,omitempty"`
	Pause   time.Duration `yaml:"pause"`
	Notify  bool          `yaml:"notify"`
}

type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Listen string `yaml:"listen,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is loaded once at startup and passed explicitly; nothing mutates
// it after Validate.
type Config struct {
	ArchiveBox ArchiveBoxConfig `yaml:"archivebox"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
	Retention  RetentionPolicy  `yaml:"retention"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Sites      []Site           `yaml:"sites"`
}

func DefaultConfig() *Config {
	return &Config{
		ArchiveBox: ArchiveBoxConfig{
			DataDir: filepath.Join("srv", "archivebox"),
		},
		Defaults: DefaultsConfig{
			Depth:      1,
			Timeout:    60,
			Extractors: []string{"screenshot", "pdf", "wget"},
		},
		Retention: RetentionPolicy{
			MaxAgeDays:       180,
			KeepMonthlyFirst: true,
		},
		Schedule: ScheduleConfig{
			Archive: "0 2 1 * *",
			Cleanup: "0 4 * * 0",
			Pause:   2 * time.Second,
			Notify:  true,
		},
		Server: ServerConfig{
			Host:   "0.0.0.0",
			Port:   DefaultPort,
			Listen: "127.0.0.1:9180",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ExampleConfig is written by init when no config exists yet.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	depth := 1
	monthly := true
	cfg.Sites = []Site{{
		Name:            "Example Site",
		URL:             "https://example.com",
		Client:          "Example Client",
		Depth:           &depth,
		ArchiveSubpages: []string{"contact", "about"},
		MonthlySnapshot: &monthly,
		Extractors:      []string{"screenshot", "pdf", "wget", "singlefile"},
	}}
	return cfg
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	if err := c.Retention.Validate(); err != nil {
		return err
	}
	if c.Defaults.Depth < 0 {
		return fmt.Errorf("defaults.depth must be >= 0, got %d", c.Defaults.Depth)
	}
	for _, expr := range []string{c.Schedule.Archive, c.Schedule.Cleanup} {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
		}
	}

	slugs := make(map[string]string)
	for i, s := range c.Sites {
		if s.URL == "" {
			return fmt.Errorf("sites[%d]: url is required", i)
		}
		if s.Depth != nil && *s.Depth < 0 {
			return fmt.Errorf("sites[%d]: depth must be >= 0", i)
		}
		slug := s.ResolvedSlug()
		if other, dup := slugs[slug]; dup {
			return fmt.Errorf("sites[%d]: slug %q already used by %q", i, slug, other)
		}
		slugs[slug] = s.URL
	}
	return nil
}

// SiteDepth returns the crawl depth for s, falling back to the defaults.
func (c *Config) SiteDepth(s Site) int {
	if s.Depth != nil {
		return *s.Depth
	}
	return c.Defaults.Depth
}

func (c *Config) SiteExtractors(s Site) []string {
	if len(s.Extractors) > 0 {
		return s.Extractors
	}
	return c.Defaults.Extractors
}

// FindSite matches ref against slug, name (case-insensitive) and url.
func (c *Config) FindSite(ref string) (Site, error) {
	for _, s := range c.Sites {
		if s.ResolvedSlug() == ref || strings.EqualFold(s.Name, ref) || s.URL == ref {
			return s, nil
		}
	}
	return Site{}, fmt.Errorf("%w: %q", ErrSiteNotFound, ref)
}

// SiteForURL finds the configured site whose url or subpages equal raw.
func (c *Config) SiteForURL(raw string) (Site, bool) {
	norm := strings.TrimRight(raw, "/")
	for _, s := range c.Sites {
		if strings.TrimRight(s.URL, "/") == norm {
			return s, true
		}
		for _, sub := range s.SubpageURLs() {
			if sub == norm {
				return s, true
			}
		}
	}
	return Site{}, false
}

// LoadURLsFile reads one url per line, skipping blanks and # comments.
func LoadURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open urls file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}
	return urls, nil
}

const urlsFileHeader = "# Add URLs here, one per line\n"

// EnsureURLsFile creates an empty urls file with a header comment. An
// existing file is left alone.
func EnsureURLsFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create urls dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create urls file: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(urlsFileHeader)
	return err
}

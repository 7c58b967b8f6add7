package v1

import "time"

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	configFile string
	dataDir    string
	serverBase string
	now        func() time.Time
}

// WithConfigFile loads sites and settings from a sites config file.
func WithConfigFile(path string) Option {
	return func(c *clientConfig) {
		c.configFile = path
	}
}

// WithDataDir overrides the ArchiveBox data directory.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithServerBase makes resolved links absolute against the ArchiveBox web UI.
func WithServerBase(base string) Option {
	return func(c *clientConfig) {
		c.serverBase = base
	}
}

// WithClock replaces the clock used for relative months and retention.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) {
		c.now = now
	}
}

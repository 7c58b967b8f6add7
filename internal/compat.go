package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type ToolVersion struct {
	Major, Minor, Patch int
}

var versionPattern = regexp.MustCompile(`v?(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseToolVersion finds the first x.y[.z] version in the output of
// "archivebox version".
func ParseToolVersion(out string) (ToolVersion, error) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return ToolVersion{}, fmt.Errorf("no version found in %q", strings.TrimSpace(out))
	}
	var v ToolVersion
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v, nil
}

func (v ToolVersion) IsZero() bool {
	return v == ToolVersion{}
}

func (v ToolVersion) Less(o ToolVersion) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

func (v ToolVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// FlagShim removes Flag from argument lists when Remove reports the
// detected version does not understand it.
type FlagShim struct {
	Flag       string
	TakesValue bool
	Remove     func(ToolVersion) bool
}

// EnvShim turns a disabled feature into tool configuration.
type EnvShim struct {
	Feature string
	Env     func(ToolVersion) []string
}

func olderThan(major, minor int) func(ToolVersion) bool {
	min := ToolVersion{Major: major, Minor: minor}
	return func(v ToolVersion) bool { return !v.IsZero() && v.Less(min) }
}

// DefaultFlagShims lists add/remove flags that older ArchiveBox releases
// reject.
func DefaultFlagShims() []FlagShim {
	return []FlagShim{
		{Flag: "--index-only", Remove: olderThan(0, 5)},
		{Flag: "--tag", TakesValue: true, Remove: olderThan(0, 6)},
		{Flag: "--extract", TakesValue: true, Remove: olderThan(0, 6)},
		{Flag: "--filter-type", TakesValue: true, Remove: olderThan(0, 5)},
	}
}

// DefaultEnvShims maps disable-able extractors to ArchiveBox config vars.
func DefaultEnvShims() []EnvShim {
	saveVar := func(name string) func(ToolVersion) []string {
		return func(ToolVersion) []string { return []string{name + "=False"} }
	}
	return []EnvShim{
		{Feature: "readability", Env: saveVar("SAVE_READABILITY")},
		{Feature: "mercury", Env: saveVar("SAVE_MERCURY")},
		{Feature: "media", Env: saveVar("SAVE_MEDIA")},
		{Feature: "git", Env: saveVar("SAVE_GIT")},
		{Feature: "archive_dot_org", Env: saveVar("SAVE_ARCHIVE_DOT_ORG")},
	}
}

// Compat is the shim table evaluated against one detected version.
type Compat struct {
	Version ToolVersion
	removed map[string]bool // flag -> takes value
	env     []string
}

func NewCompat(version ToolVersion, flags []FlagShim, envs []EnvShim, disabled []string) *Compat {
	c := &Compat{Version: version, removed: make(map[string]bool)}
	for _, f := range flags {
		if f.Remove != nil && f.Remove(version) {
			c.removed[f.Flag] = f.TakesValue
		}
	}
	off := make(map[string]bool, len(disabled))
	for _, d := range disabled {
		off[strings.ToLower(d)] = true
	}
	for _, e := range envs {
		if off[e.Feature] {
			c.env = append(c.env, e.Env(version)...)
		}
	}
	return c
}

// Apply strips removed flags in both "--flag value" and "--flag=value" form.
func (c *Compat) Apply(args []string) []string {
	if c == nil || len(c.removed) == 0 {
		return args
	}
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, _, hasValue := strings.Cut(args[i], "=")
		takesValue, drop := c.removed[name]
		if !drop {
			out = append(out, args[i])
			continue
		}
		if takesValue && !hasValue && i+1 < len(args) {
			i++
		}
	}
	return out
}

func (c *Compat) Env() []string {
	if c == nil {
		return nil
	}
	return c.env
}

func (c *Compat) Removes(flag string) bool {
	if c == nil {
		return false
	}
	_, ok := c.removed[flag]
	return ok
}

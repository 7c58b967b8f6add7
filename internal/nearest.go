package internal

import (
	"path/filepath"
	"strings"
)

type ResolveKind int

const (
	ResolveNotFound ResolveKind = iota
	ResolveFound
)

func (k ResolveKind) String() string {
	if k == ResolveFound {
		return "found"
	}
	return "not_found"
}

// LinkOptions controls how a resolved snapshot is turned into links.
type LinkOptions struct {
	// ServerBase is the archive web UI origin, e.g. "http://localhost:8001".
	ServerBase string
	// DataDir is the registry data directory used for the local path fallback.
	DataDir string
}

type ResolvedLink struct {
	Kind      ResolveKind
	Target    YearMonth
	Snapshot  Snapshot
	Timestamp string
	Link      string
	LocalPath string
	// Distance is the number of months between the snapshot and Target.
	Distance int
}

func (r ResolvedLink) Found() bool {
	return r.Kind == ResolveFound
}

// ResolveNearest picks the snapshot whose month is closest to target. Equal
// distances go to the most recent capture.
func ResolveNearest(snapshots []Snapshot, target YearMonth, opts LinkOptions) ResolvedLink {
	if len(snapshots) == 0 {
		return ResolvedLink{Kind: ResolveNotFound, Target: target}
	}

	best := snapshots[0]
	bestDist := best.Month().Distance(target)
	for _, s := range snapshots[1:] {
		d := s.Month().Distance(target)
		if d < bestDist || (d == bestDist && preferLater(s, best)) {
			best, bestDist = s, d
		}
	}

	ts := best.TimestampID()
	res := ResolvedLink{
		Kind:      ResolveFound,
		Target:    target,
		Snapshot:  best,
		Timestamp: ts,
		Distance:  bestDist,
	}

	path := ArchivePath(ts)
	if opts.ServerBase != "" {
		res.Link = strings.TrimRight(opts.ServerBase, "/") + path
		return res
	}
	res.Link = path
	if opts.DataDir != "" {
		res.LocalPath = SnapshotDir(opts.DataDir, ts)
	}
	return res
}

func preferLater(a, b Snapshot) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.URL < b.URL
}

// ArchivePath is the web UI path for a snapshot timestamp.
func ArchivePath(timestampID string) string {
	return "/archive/" + timestampID + "/"
}

// SnapshotDir is the on-disk directory of a snapshot inside a data dir.
func SnapshotDir(dataDir, timestampID string) string {
	return filepath.Join(dataDir, "archive", timestampID)
}

package internal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("snapshot not found")
	ErrInvalidPolicy = errors.New("invalid retention policy")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrSiteNotFound  = errors.New("site not configured")
	ErrNoSites       = errors.New("no sites configured")
	ErrBadTimestamp  = errors.New("malformed snapshot timestamp")
)

// Snapshot is a read-only view of one archived capture in the registry.
type Snapshot struct {
	URL       string
	Timestamp time.Time
	Tags      []string
	Title     string

	// ArchiveID is the registry-native timestamp identifier, e.g. "1691846940.123".
	// Empty for snapshots that did not come from a registry.
	ArchiveID string
}

// SnapshotID identifies a snapshot by url and timestamp identifier.
type SnapshotID struct {
	URL       string
	Timestamp string
}

func (s Snapshot) ID() SnapshotID {
	return SnapshotID{URL: s.URL, Timestamp: s.TimestampID()}
}

// TimestampID returns the identifier used in archive paths.
func (s Snapshot) TimestampID() string {
	if s.ArchiveID != "" {
		return s.ArchiveID
	}
	return FormatTimestampID(s.Timestamp)
}

func (s Snapshot) Month() YearMonth {
	return MonthOf(s.Timestamp)
}

func (s Snapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FormatTimestampID renders t as unix seconds, with a fractional part only
// when t has sub-second precision.
func FormatTimestampID(t time.Time) string {
	sec := t.Unix()
	nsec := t.Nanosecond()
	if nsec == 0 {
		return strconv.FormatInt(sec, 10)
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", nsec), "0")
	return strconv.FormatInt(sec, 10) + "." + frac
}

// ParseTimestampID is the inverse of FormatTimestampID. It accepts any
// number of fractional digits; digits beyond nanoseconds are truncated.
func ParseTimestampID(s string) (time.Time, error) {
	whole, frac, hasFrac := strings.Cut(strings.TrimSpace(s), ".")
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || whole == "" {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	var nsec int64
	if hasFrac && frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
		}
		nsec = int64(n)
		for i := len(frac); i < 9; i++ {
			nsec *= 10
		}
	}
	return time.Unix(sec, nsec).UTC(), nil
}

// SortSnapshots orders snapshots oldest first, by url on equal timestamps.
func SortSnapshots(snapshots []Snapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshotLess(snapshots[i], snapshots[j])
	})
}

func snapshotLess(a, b Snapshot) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.URL < b.URL
}

// dedupeSnapshots drops repeated (url, timestamp) records, keeping the first.
func dedupeSnapshots(snapshots []Snapshot) []Snapshot {
	seen := make(map[SnapshotID]bool, len(snapshots))
	out := make([]Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		id := s.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, s)
	}
	return out
}

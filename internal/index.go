package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// tagSeparator joins tag names inside GROUP_CONCAT; it cannot occur in a tag.
const tagSeparator = "\x1f"

// SnapshotFilter narrows a registry listing. Zero values match everything.
type SnapshotFilter struct {
	URL       string
	URLPrefix string
	Tags      []string // every tag must be present
	Since     time.Time
	Until     time.Time
	Limit     int
	Newest    bool // newest first; oldest first otherwise
}

// SnapshotRegistry is the read side of a registry instance.
type SnapshotRegistry interface {
	List(ctx context.Context, filter SnapshotFilter) ([]Snapshot, error)
	Close() error
}

// SnapshotIndex reads ArchiveBox's index.sqlite3 without writing to it.
type SnapshotIndex struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

func OpenSnapshotIndex(scope Scope, logger *slog.Logger) (*SnapshotIndex, error) {
	path := scope.IndexPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("registry not initialized: %s", scope.DataDir)
		}
		return nil, fmt.Errorf("stat index: %w", err)
	}
	if logger == nil {
		logger = discardLogger()
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}

	return &SnapshotIndex{
		db:     db,
		path:   path,
		logger: logger.With("component", "index", "path", path),
	}, nil
}

func (i *SnapshotIndex) Close() error {
	return i.db.Close()
}

func (i *SnapshotIndex) List(ctx context.Context, f SnapshotFilter) ([]Snapshot, error) {
	query, args := buildListQuery(f)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			url, ts, title, tags string
		)
		if err := rows.Scan(&url, &ts, &title, &tags); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}

		t, err := ParseTimestampID(ts)
		if err != nil {
			i.logger.Warn("skipping snapshot with bad timestamp", "url", url, "timestamp", ts)
			continue
		}
		if !f.Since.IsZero() && t.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !t.Before(f.Until) {
			continue
		}

		snapshots = append(snapshots, Snapshot{
			URL:       url,
			Timestamp: t,
			Title:     title,
			Tags:      splitTags(tags),
			ArchiveID: ts,
		})
		if f.Limit > 0 && len(snapshots) >= f.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return snapshots, nil
}

func buildListQuery(f SnapshotFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.URL != "" {
		where = append(where, "s.url = ?")
		args = append(args, f.URL)
	}
	if f.URLPrefix != "" {
		where = append(where, "s.url LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(f.URLPrefix)+"%")
	}
	for _, tag := range f.Tags {
		where = append(where, `s.id IN (
			SELECT st2.snapshot_id FROM core_snapshot_tags st2
			JOIN core_tag t2 ON t2.id = st2.tag_id
			WHERE t2.name = ?)`)
		args = append(args, tag)
	}

	order := "ASC"
	if f.Newest {
		order = "DESC"
	}

	var b strings.Builder
	b.WriteString(`SELECT s.url, s.timestamp, COALESCE(s.title, ''),
		COALESCE(GROUP_CONCAT(t.name, '` + tagSeparator + `'), '')
		FROM core_snapshot s
		LEFT JOIN core_snapshot_tags st ON st.snapshot_id = s.id
		LEFT JOIN core_tag t ON t.id = st.tag_id`)
	if len(where) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n\t\tGROUP BY s.id\n\t\tORDER BY CAST(s.timestamp AS REAL) " + order + ", s.url ASC")
	return b.String(), args
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, tagSeparator)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

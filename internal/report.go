package internal

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SiteResult struct {
	Name     string
	URL      string
	Scope    string
	Tags     []string
	Err      error
	Subpages []SubpageResult
}

func (r SiteResult) OK() bool {
	return r.Err == nil
}

type SubpageResult struct {
	URL string
	Err error
}

type CleanupResult struct {
	Scope   string
	Deleted int
	Exempt  int
	Kept    int
	DryRun  bool
	Err     error
}

// RunReport summarizes one scheduled run.
type RunReport struct {
	ID       uuid.UUID
	Started  time.Time
	Finished time.Time
	Sites    []SiteResult
	Cleanup  []CleanupResult
	Err      error
}

func NewRunReport(started time.Time) *RunReport {
	return &RunReport{ID: uuid.New(), Started: started}
}

func (r *RunReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

func (r *RunReport) Counts() (ok, failed int) {
	for _, s := range r.Sites {
		if s.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

func (r *RunReport) Success() bool {
	if r.Err != nil {
		return false
	}
	for _, c := range r.Cleanup {
		if c.Err != nil {
			return false
		}
	}
	_, failed := r.Counts()
	return failed == 0
}

// Path is the report's location inside the journal.
func (r *RunReport) Path() string {
	start := r.Started.UTC()
	name := fmt.Sprintf("%s-%s.md", start.Format("20060102T150405Z"), r.ID.String()[:8])
	return path.Join("runs", start.Format("2006"), start.Format("01"), name)
}

func (r *RunReport) Summary() string {
	ok, failed := r.Counts()
	deleted := 0
	for _, c := range r.Cleanup {
		if !c.DryRun {
			deleted += c.Deleted
		}
	}
	status := "ok"
	if !r.Success() {
		status = "errors"
	}
	return fmt.Sprintf("run %s: %d archived, %d failed, %d deleted (%s)",
		r.ID.String()[:8], ok, failed, deleted, status)
}

// Render formats the report as Markdown.
func (r *RunReport) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Archive Run Report\n\n")
	fmt.Fprintf(&b, "- Run: %s\n", r.ID)
	fmt.Fprintf(&b, "- Start: %s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", r.Duration().Round(time.Second))
	if r.Err != nil {
		fmt.Fprintf(&b, "- Error: %v\n", r.Err)
	}

	if len(r.Sites) > 0 {
		b.WriteString("\n## Sites\n\n")
		for _, s := range r.Sites {
			status := "ok"
			if s.Err != nil {
				status = "FAILED: " + s.Err.Error()
			}
			fmt.Fprintf(&b, "- %s: %s (%s)\n", s.Name, s.URL, status)
			for _, sub := range s.Subpages {
				if sub.Err != nil {
					fmt.Fprintf(&b, "  - %s (FAILED: %v)\n", sub.URL, sub.Err)
				} else {
					fmt.Fprintf(&b, "  - %s\n", sub.URL)
				}
			}
		}
	}

	if len(r.Cleanup) > 0 {
		b.WriteString("\n## Cleanup\n\n")
		for _, c := range r.Cleanup {
			prefix := ""
			if c.DryRun {
				prefix = "DRY RUN "
			}
			if c.Err != nil {
				fmt.Fprintf(&b, "- %s%s: FAILED: %v\n", prefix, c.Scope, c.Err)
				continue
			}
			fmt.Fprintf(&b, "- %s%s: %d deleted, %d kept (%d monthly exemptions)\n",
				prefix, c.Scope, c.Deleted, c.Kept, c.Exempt)
		}
	}

	return b.String()
}

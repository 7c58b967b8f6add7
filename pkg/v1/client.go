package v1

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/4thel00z/archivist/internal"
)

// Client provides programmatic read access to an archive and the
// retention and lookup rules the CLI applies.
type Client struct {
	cfg *internal.Config
	uc  *internal.UseCases
	now func() time.Time
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cc := &clientConfig{now: time.Now}
	for _, opt := range opts {
		opt(cc)
	}

	cfg := internal.DefaultConfig()
	if cc.configFile != "" {
		loaded, err := internal.LoadConfig(cc.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cc.dataDir != "" {
		cfg.ArchiveBox.DataDir = cc.dataDir
	}
	if cc.serverBase != "" {
		cfg.ArchiveBox.ServerBase = cc.serverBase
	}

	runner := internal.NewExecRunner(io.Discard, io.Discard, nil)
	archiveBox := internal.ArchiveBoxFactory(cfg, runner, nil)

	uc := internal.NewUseCases(internal.Deps{
		Config:      cfg,
		Resolver:    internal.NewScopeResolver(cfg.ArchiveBox.DataDir),
		ArchiverFor: func(s internal.Scope) internal.Archiver { return archiveBox(s) },
		Now:         cc.now,
	})

	return &Client{cfg: cfg, uc: uc, now: cc.now}, nil
}

// Snapshots lists the archived snapshots of url, oldest first.
func (c *Client) Snapshots(ctx context.Context, url string) ([]Snapshot, error) {
	out, err := c.uc.List.Execute(ctx, internal.ListInput{URL: url})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	snaps := make([]Snapshot, 0, len(out.Snapshots))
	for _, ls := range out.Snapshots {
		snaps = append(snaps, toSnapshot(ls.Snapshot))
	}
	return snaps, nil
}

// Nearest resolves the snapshot of a URL or configured site nearest to
// month (YYYY-MM).
func (c *Client) Nearest(ctx context.Context, ref, month string) (Link, error) {
	res, err := c.uc.Nearest.Execute(ctx, internal.NearestInput{Ref: ref, Month: month})
	if err != nil {
		return Link{}, err
	}
	return toLink(*res), nil
}

// NearestMonthsAgo resolves the snapshot nearest to n months before the
// current month.
func (c *Client) NearestMonthsAgo(ctx context.Context, ref string, n int) (Link, error) {
	res, err := c.uc.Nearest.Execute(ctx, internal.NearestInput{Ref: ref, MonthsAgo: n})
	if err != nil {
		return Link{}, err
	}
	return toLink(*res), nil
}

// Tags returns the tags a configured site would be archived with now.
func (c *Client) Tags(site string) ([]string, error) {
	s, err := c.cfg.FindSite(site)
	if err != nil {
		return nil, err
	}
	return internal.SynthesizeTags(s, c.now()), nil
}

// Resolve picks the snapshot nearest to month among snapshots without
// touching an archive. Without a server base the link carries the local
// path under the data dir.
func (c *Client) Resolve(snapshots []Snapshot, month string) (Link, error) {
	target, err := internal.ParseYearMonth(month)
	if err != nil {
		return Link{}, err
	}
	res := internal.ResolveNearest(fromSnapshots(snapshots), target, internal.LinkOptions{
		ServerBase: c.cfg.ArchiveBox.ServerBase,
		DataDir:    c.uc.Resolver.Shared().DataDir,
	})
	return toLink(res), nil
}

// Plan evaluates policy against snapshots at the client's current time.
// Nothing is deleted.
func (c *Client) Plan(snapshots []Snapshot, policy RetentionPolicy) (*Plan, error) {
	plan, err := internal.EvaluateRetention(fromSnapshots(snapshots), internal.RetentionPolicy{
		MaxAgeDays:       policy.MaxAgeDays,
		KeepMonthlyFirst: policy.KeepMonthlyFirst,
		DryRun:           true,
	}, c.now())
	if err != nil {
		return nil, err
	}
	return &Plan{
		Cutoff: plan.Cutoff,
		Delete: toSnapshots(plan.Delete),
		Exempt: toSnapshots(plan.Exempt),
		Keep:   toSnapshots(plan.Keep),
	}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	return nil
}

func toSnapshot(s internal.Snapshot) Snapshot {
	return Snapshot{
		URL:       s.URL,
		ID:        s.TimestampID(),
		Timestamp: s.Timestamp,
		Title:     s.Title,
		Tags:      s.Tags,
	}
}

func toSnapshots(in []internal.Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(in))
	for _, s := range in {
		out = append(out, toSnapshot(s))
	}
	return out
}

func fromSnapshots(in []Snapshot) []internal.Snapshot {
	out := make([]internal.Snapshot, 0, len(in))
	for _, s := range in {
		out = append(out, internal.Snapshot{
			URL:       s.URL,
			Timestamp: s.Timestamp,
			Title:     s.Title,
			Tags:      s.Tags,
			ArchiveID: s.ID,
		})
	}
	return out
}

func toLink(r internal.ResolvedLink) Link {
	l := Link{Found: r.Found(), Target: r.Target.String()}
	if !l.Found {
		return l
	}
	l.Snapshot = toSnapshot(r.Snapshot)
	l.URL = r.Link
	l.LocalPath = r.LocalPath
	l.Distance = r.Distance
	return l
}

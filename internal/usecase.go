package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Archiver is the write side of a registry instance.
type Archiver interface {
	EnsureInit(ctx context.Context) error
	Add(ctx context.Context, req AddRequest) error
	Remove(ctx context.Context, ids []SnapshotID) error
	Status(ctx context.Context) (string, error)
}

// Deps are the collaborators shared by the use cases. Config is never
// modified after construction.
type Deps struct {
	Config      *Config
	Resolver    *ScopeResolver
	ArchiverFor func(Scope) Archiver
	RegistryFor func(Scope) (SnapshotRegistry, error)
	JournalFor  func(Scope) (*Journal, error)
	Notifier    Notifier
	Metrics     *Metrics
	Logger      *slog.Logger
	Now         func() time.Time
	Sleep       func(ctx context.Context, d time.Duration) error

	// Lock serializes registry mutations across use cases.
	Lock *sync.Mutex
}

func (d Deps) withDefaults() Deps {
	if d.Config == nil {
		d.Config = DefaultConfig()
	}
	if d.Resolver == nil {
		d.Resolver = NewScopeResolver(d.Config.ArchiveBox.DataDir)
	}
	if d.RegistryFor == nil {
		logger := d.Logger
		d.RegistryFor = func(s Scope) (SnapshotRegistry, error) { return OpenSnapshotIndex(s, logger) }
	}
	if d.JournalFor == nil {
		d.JournalFor = func(s Scope) (*Journal, error) { return OpenJournal(s.ReportsPath()) }
	}
	if d.Logger == nil {
		d.Logger = discardLogger()
	}
	if d.Notifier == nil {
		d.Notifier = NewLogNotifier(d.Logger)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = sleepContext
	}
	if d.Lock == nil {
		d.Lock = &sync.Mutex{}
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ArchiveBoxFactory builds one client per data dir and reuses it, so
// version detection runs once per process.
func ArchiveBoxFactory(cfg *Config, runner Runner, logger *slog.Logger) func(Scope) *ArchiveBox {
	var mu sync.Mutex
	clients := make(map[string]*ArchiveBox)
	return func(s Scope) *ArchiveBox {
		mu.Lock()
		defer mu.Unlock()
		if c, ok := clients[s.DataDir]; ok {
			return c
		}
		c := NewArchiveBox(runner, ArchiveBoxOptions{
			Binary:   cfg.ArchiveBox.Binary,
			DataDir:  s.DataDir,
			Disabled: cfg.ArchiveBox.Disable,
			Logger:   logger,
		})
		clients[s.DataDir] = c
		return c
	}
}

// UseCases bundles every use case built from one Deps.
type UseCases struct {
	Resolver *ScopeResolver

	AddURL   *AddURLUseCase
	Bulk     *BulkArchiveUseCase
	List     *ListSnapshotsUseCase
	Status   *StatusUseCase
	Cleanup  *CleanupUseCase
	Nearest  *NearestUseCase
	Compare  *CompareUseCase
	Schedule *ScheduledRunUseCase
	Journal  *JournalLogUseCase
}

func NewUseCases(d Deps) *UseCases {
	d = d.withDefaults()
	bulk := NewBulkArchiveUseCase(d)
	cleanup := NewCleanupUseCase(d)
	nearest := NewNearestUseCase(d)
	return &UseCases{
		Resolver: d.Resolver,
		AddURL:   NewAddURLUseCase(d),
		Bulk:     bulk,
		List:     NewListSnapshotsUseCase(d),
		Status:   NewStatusUseCase(d),
		Cleanup:  cleanup,
		Nearest:  nearest,
		Compare:  NewCompareUseCase(d, nearest),
		Schedule: NewScheduledRunUseCase(d, bulk, cleanup),
		Journal:  NewJournalLogUseCase(d),
	}
}

// Use case input/output DTOs

type AddURLInput struct {
	URL string
	// Depth nil uses the site's depth, or defaults.depth for other urls.
	Depth     *int
	Tags      []string
	IndexOnly bool
}

type AddURLOutput struct {
	URL   string
	Scope Scope
	Depth int
	Tags  []string
}

type BulkInput struct {
	IndexOnly bool
	Parallel  bool
}

type BulkOutput struct {
	Source  string // "config" or "urls"
	Results []SiteResult
}

func (o *BulkOutput) Failed() int {
	n := 0
	for _, r := range o.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}

type ListInput struct {
	Client string
	Month  string
	Site   string
	URL    string
	Limit  int
}

type ListedSnapshot struct {
	Scope    Scope
	Snapshot Snapshot
}

type ListOutput struct {
	Snapshots []ListedSnapshot
}

type StatusInput struct {
	Recent int
}

type ScopeStatus struct {
	Scope       Scope
	Initialized bool
	ToolStatus  string
	ToolErr     error
	Total       int
	Recent      []Snapshot
	SizeBytes   int64
}

type StatusOutput struct {
	Scopes []ScopeStatus
}

type CleanupInput struct {
	Policy RetentionPolicy
	Site   string
}

type ScopePlan struct {
	Scope Scope
	Plan  *RetentionPlan
}

type CleanupOutput struct {
	Plans   []ScopePlan
	Results []CleanupResult
}

type NearestInput struct {
	Ref        string
	Month      string
	MonthsAgo  int
	ServerBase string
}

type CompareInput struct {
	Ref     string
	Date1   string
	Date2   string
	Context int
}

type CompareOutput struct {
	Before       ResolvedLink
	After        ResolvedLink
	BeforeSource string
	AfterSource  string
	Diff         string
	Stats        DiffStats
	Note         string
}

type ScheduledRunInput struct {
	Cleanup bool
	Notify  bool
}

type JournalInput struct {
	Limit int
	Show  string
}

type JournalOutput struct {
	Entries []*JournalEntry
	Report  string
}

// Use cases

type AddURLUseCase struct {
	d Deps
}

func NewAddURLUseCase(d Deps) *AddURLUseCase {
	return &AddURLUseCase{d: d.withDefaults()}
}

// Execute archives a single url. URLs belonging to a configured site get
// that site's synthesized tags and registry instance.
func (uc *AddURLUseCase) Execute(ctx context.Context, input AddURLInput) (*AddURLOutput, error) {
	if input.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	now := uc.d.Now()

	scope := uc.d.Resolver.Shared()
	tags := mergeTags(input.Tags, []string{MonthTag(now)})
	depth := uc.d.Config.Defaults.Depth
	if site, ok := uc.d.Config.SiteForURL(input.URL); ok {
		scope = uc.d.Resolver.For(site)
		tags = mergeTags(SynthesizeTags(site, now), input.Tags)
		depth = uc.d.Config.SiteDepth(site)
	}
	if input.Depth != nil {
		depth = *input.Depth
	}

	uc.d.Lock.Lock()
	defer uc.d.Lock.Unlock()

	archiver := uc.d.ArchiverFor(scope)
	if err := archiver.EnsureInit(ctx); err != nil {
		return nil, fmt.Errorf("init registry: %w", err)
	}
	if err := archiver.Add(ctx, AddRequest{
		URL:       input.URL,
		Depth:     depth,
		Tags:      tags,
		IndexOnly: input.IndexOnly,
	}); err != nil {
		return nil, fmt.Errorf("add url: %w", err)
	}

	return &AddURLOutput{URL: input.URL, Scope: scope, Depth: depth, Tags: tags}, nil
}

type BulkArchiveUseCase struct {
	d      Deps
	logger *slog.Logger
}

func NewBulkArchiveUseCase(d Deps) *BulkArchiveUseCase {
	d = d.withDefaults()
	return &BulkArchiveUseCase{d: d, logger: d.Logger.With("component", "bulk")}
}

// Execute archives every monthly site in the config, or every url in the
// shared urls.txt when no sites are configured. A failing site is
// recorded and skipped.
func (uc *BulkArchiveUseCase) Execute(ctx context.Context, input BulkInput) (*BulkOutput, error) {
	sites := uc.d.Config.Sites
	source := "config"
	if len(sites) == 0 {
		urls, err := LoadURLsFile(uc.d.Resolver.Shared().URLsFile())
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSites
		}
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			sites = append(sites, Site{Name: u, URL: u})
		}
		source = "urls"
	}
	if len(sites) == 0 {
		return nil, ErrNoSites
	}

	uc.d.Lock.Lock()
	defer uc.d.Lock.Unlock()

	out := &BulkOutput{Source: source}
	first := true
	for _, site := range sites {
		if !site.Monthly() {
			uc.logger.Debug("skipping site without monthly snapshots", "site", site.Name)
			continue
		}
		if !first && !input.Parallel {
			if err := uc.d.Sleep(ctx, uc.d.Config.Schedule.Pause); err != nil {
				return out, err
			}
		}
		first = false

		var res SiteResult
		if source == "urls" {
			res = uc.archiveURL(ctx, site, input)
		} else {
			res = uc.archiveSite(ctx, site, input)
		}
		out.Results = append(out.Results, res)

		if err := ctx.Err(); err != nil {
			return out, err
		}
	}

	uc.logger.Info("bulk archive complete", "sites", len(out.Results), "failed", out.Failed())
	return out, nil
}

func (uc *BulkArchiveUseCase) archiveSite(ctx context.Context, site Site, input BulkInput) SiteResult {
	scope := uc.d.Resolver.For(site)
	tags := SynthesizeTags(site, uc.d.Now())
	res := SiteResult{Name: site.Name, URL: site.URL, Scope: scope.String(), Tags: tags}

	archiver := uc.d.ArchiverFor(scope)
	if err := archiver.EnsureInit(ctx); err != nil {
		res.Err = fmt.Errorf("init registry: %w", err)
		return res
	}

	uc.logger.Info("archiving site", "site", site.Name, "url", site.URL, "scope", scope.String())
	err := archiver.Add(ctx, AddRequest{
		URL:        site.URL,
		Depth:      uc.d.Config.SiteDepth(site),
		Tags:       tags,
		IndexOnly:  input.IndexOnly,
		Extractors: uc.d.Config.SiteExtractors(site),
	})
	if err != nil {
		uc.logger.Warn("skipping site due to error", "site", site.Name, "error", err)
		res.Err = err
		return res
	}

	for _, sub := range site.SubpageURLs() {
		err := archiver.Add(ctx, AddRequest{
			URL:        sub,
			Depth:      0,
			Tags:       tags,
			IndexOnly:  input.IndexOnly,
			Extractors: uc.d.Config.SiteExtractors(site),
		})
		if err != nil {
			uc.logger.Warn("skipping subpage due to error", "site", site.Name, "url", sub, "error", err)
		}
		res.Subpages = append(res.Subpages, SubpageResult{URL: sub, Err: err})
	}
	return res
}

func (uc *BulkArchiveUseCase) archiveURL(ctx context.Context, site Site, input BulkInput) SiteResult {
	scope := uc.d.Resolver.Shared()
	tags := []string{MonthTag(uc.d.Now())}
	res := SiteResult{Name: site.Name, URL: site.URL, Scope: scope.String(), Tags: tags}

	archiver := uc.d.ArchiverFor(scope)
	if err := archiver.EnsureInit(ctx); err != nil {
		res.Err = fmt.Errorf("init registry: %w", err)
		return res
	}
	res.Err = archiver.Add(ctx, AddRequest{
		URL:       site.URL,
		Depth:     uc.d.Config.Defaults.Depth,
		Tags:      tags,
		IndexOnly: input.IndexOnly,
	})
	if res.Err != nil {
		uc.logger.Warn("skipping url due to error", "url", site.URL, "error", res.Err)
	}
	return res
}

type ListSnapshotsUseCase struct {
	d Deps
}

func NewListSnapshotsUseCase(d Deps) *ListSnapshotsUseCase {
	return &ListSnapshotsUseCase{d: d.withDefaults()}
}

func (uc *ListSnapshotsUseCase) Execute(ctx context.Context, input ListInput) (*ListOutput, error) {
	filter := SnapshotFilter{URL: input.URL}
	if input.Client != "" {
		filter.Tags = append(filter.Tags, ClientTag(input.Client))
	}
	if input.Month != "" {
		m, err := ParseYearMonth(input.Month)
		if err != nil {
			return nil, err
		}
		filter.Tags = append(filter.Tags, "snapshot-"+m.String())
	}

	scopes := uc.d.Resolver.All(uc.d.Config.Sites)
	if input.Site != "" {
		site, err := uc.d.Config.FindSite(input.Site)
		if err != nil {
			return nil, err
		}
		filter.Tags = append(filter.Tags, SiteTag(site.Name))
		scopes = []Scope{uc.d.Resolver.For(site)}
	}

	out := &ListOutput{}
	for _, scope := range scopes {
		snapshots, err := listScope(ctx, uc.d, scope, filter)
		if err != nil {
			return nil, err
		}
		for _, s := range snapshots {
			out.Snapshots = append(out.Snapshots, ListedSnapshot{Scope: scope, Snapshot: s})
		}
	}

	if input.Limit > 0 && len(out.Snapshots) > input.Limit {
		out.Snapshots = out.Snapshots[len(out.Snapshots)-input.Limit:]
	}
	return out, nil
}

// listScope lists one registry instance. An uninitialized instance has no
// snapshots yet.
func listScope(ctx context.Context, d Deps, scope Scope, filter SnapshotFilter) ([]Snapshot, error) {
	if !scope.Initialized() {
		return nil, nil
	}
	reg, err := d.RegistryFor(scope)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", scope, err)
	}
	defer reg.Close()

	snapshots, err := reg.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", scope, err)
	}
	return snapshots, nil
}

type StatusUseCase struct {
	d Deps
}

func NewStatusUseCase(d Deps) *StatusUseCase {
	return &StatusUseCase{d: d.withDefaults()}
}

func (uc *StatusUseCase) Execute(ctx context.Context, input StatusInput) (*StatusOutput, error) {
	recent := input.Recent
	if recent <= 0 {
		recent = 10
	}

	out := &StatusOutput{}
	for _, scope := range uc.d.Resolver.All(uc.d.Config.Sites) {
		st := ScopeStatus{Scope: scope, Initialized: scope.Initialized()}
		if !st.Initialized {
			out.Scopes = append(out.Scopes, st)
			continue
		}

		st.ToolStatus, st.ToolErr = uc.d.ArchiverFor(scope).Status(ctx)

		all, err := listScope(ctx, uc.d, scope, SnapshotFilter{Newest: true})
		if err != nil {
			return nil, err
		}
		st.Total = len(all)
		if len(all) > recent {
			all = all[:recent]
		}
		st.Recent = all

		var skip []string
		if scope.Type == ScopeShared {
			// per-site instances are measured on their own
			skip = append(skip, filepath.Join(scope.DataDir, "sites"))
		}
		size, err := dirSize(scope.DataDir, skip...)
		if err != nil {
			return nil, fmt.Errorf("measure %s: %w", scope.DataDir, err)
		}
		st.SizeBytes = size

		out.Scopes = append(out.Scopes, st)
	}
	return out, nil
}

// dirSize sums regular files under root, leaving out the skip trees.
func dirSize(root string, skip ...string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			for _, s := range skip {
				if path == s {
					return filepath.SkipDir
				}
			}
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

type CleanupUseCase struct {
	d      Deps
	logger *slog.Logger
}

func NewCleanupUseCase(d Deps) *CleanupUseCase {
	d = d.withDefaults()
	return &CleanupUseCase{d: d, logger: d.Logger.With("component", "cleanup")}
}

// Execute evaluates the policy for every registry instance and deletes the
// resulting snapshots unless the policy is a dry run.
func (uc *CleanupUseCase) Execute(ctx context.Context, input CleanupInput) (*CleanupOutput, error) {
	if err := input.Policy.Validate(); err != nil {
		return nil, err
	}

	scopes := uc.d.Resolver.All(uc.d.Config.Sites)
	var filter SnapshotFilter
	if input.Site != "" {
		site, err := uc.d.Config.FindSite(input.Site)
		if err != nil {
			return nil, err
		}
		scopes = []Scope{uc.d.Resolver.For(site)}
		filter.Tags = []string{SiteTag(site.Name)}
	}

	uc.d.Lock.Lock()
	defer uc.d.Lock.Unlock()

	now := uc.d.Now()
	out := &CleanupOutput{}
	for _, scope := range scopes {
		res := CleanupResult{Scope: scope.String(), DryRun: input.Policy.DryRun}

		snapshots, err := listScope(ctx, uc.d, scope, filter)
		if err != nil {
			res.Err = err
			out.Results = append(out.Results, res)
			continue
		}

		plan, err := EvaluateRetentionGroups(groupBySite(snapshots, uc.sitesIn(scope)), input.Policy, now)
		if err != nil {
			return nil, err
		}
		out.Plans = append(out.Plans, ScopePlan{Scope: scope, Plan: plan})
		res.Deleted, res.Exempt, res.Kept = len(plan.Delete), len(plan.Exempt), len(plan.Keep)

		uc.logger.Info("retention evaluated",
			"scope", scope.String(),
			"snapshots", len(snapshots),
			"delete", len(plan.Delete),
			"exempt", len(plan.Exempt),
			"cutoff", plan.Cutoff,
			"dry_run", input.Policy.DryRun,
		)

		if !input.Policy.DryRun && len(plan.Delete) > 0 {
			if err := uc.d.ArchiverFor(scope).Remove(ctx, plan.DeleteIDs()); err != nil {
				res.Err = fmt.Errorf("remove snapshots: %w", err)
				res.Deleted = 0
			}
		}
		out.Results = append(out.Results, res)
	}

	uc.d.Metrics.ObserveCleanup(out.Results, uc.d.Now())
	return out, nil
}

// sitesIn lists the configured sites archived into scope.
func (uc *CleanupUseCase) sitesIn(scope Scope) []Site {
	var sites []Site
	for _, site := range uc.d.Config.Sites {
		if uc.d.Resolver.For(site) == scope {
			sites = append(sites, site)
		}
	}
	return sites
}

// groupBySite splits a registry listing by site tag, in config order.
// Snapshots without a site tag form a final group of their own.
func groupBySite(snapshots []Snapshot, sites []Site) [][]Snapshot {
	if len(sites) == 0 {
		return [][]Snapshot{snapshots}
	}
	groups := make([][]Snapshot, len(sites)+1)
	for _, s := range snapshots {
		idx := len(sites)
		for i, site := range sites {
			if s.HasTag(SiteTag(site.Name)) {
				idx = i
				break
			}
		}
		groups[idx] = append(groups[idx], s)
	}
	return groups
}

type NearestUseCase struct {
	d Deps
}

func NewNearestUseCase(d Deps) *NearestUseCase {
	return &NearestUseCase{d: d.withDefaults()}
}

// Target resolves the requested month: an explicit month wins, otherwise
// MonthsAgo months before the current one.
func (uc *NearestUseCase) Target(month string, monthsAgo int) (YearMonth, error) {
	if month != "" {
		return ParseYearMonth(month)
	}
	if monthsAgo < 0 {
		return YearMonth{}, fmt.Errorf("%w: months ago must be >= 0, got %d", ErrInvalidMonth, monthsAgo)
	}
	return MonthsAgo(MonthOf(uc.d.Now()), monthsAgo), nil
}

// Locate maps a site reference or url to the url and registry instance
// holding its snapshots.
func (uc *NearestUseCase) Locate(ref string) (string, Scope) {
	if site, err := uc.d.Config.FindSite(ref); err == nil {
		return site.URL, uc.d.Resolver.For(site)
	}
	if site, ok := uc.d.Config.SiteForURL(ref); ok {
		return ref, uc.d.Resolver.For(site)
	}
	return ref, uc.d.Resolver.Shared()
}

func (uc *NearestUseCase) Execute(ctx context.Context, input NearestInput) (*ResolvedLink, error) {
	target, err := uc.Target(input.Month, input.MonthsAgo)
	if err != nil {
		return nil, err
	}

	url, scope := uc.Locate(input.Ref)
	snapshots, err := listScope(ctx, uc.d, scope, SnapshotFilter{URL: url})
	if err != nil {
		return nil, err
	}

	base := input.ServerBase
	if base == "" {
		base = uc.d.Config.ArchiveBox.ServerBase
	}
	res := ResolveNearest(snapshots, target, LinkOptions{ServerBase: base, DataDir: scope.DataDir})
	return &res, nil
}

type CompareUseCase struct {
	d       Deps
	nearest *NearestUseCase
}

func NewCompareUseCase(d Deps, nearest *NearestUseCase) *CompareUseCase {
	d = d.withDefaults()
	if nearest == nil {
		nearest = NewNearestUseCase(d)
	}
	return &CompareUseCase{d: d, nearest: nearest}
}

// Execute resolves the snapshots nearest to both dates and diffs their
// text. Date2 defaults to the current month.
func (uc *CompareUseCase) Execute(ctx context.Context, input CompareInput) (*CompareOutput, error) {
	date2 := input.Date2
	if date2 == "" {
		date2 = MonthOf(uc.d.Now()).String()
	}

	before, err := uc.nearest.Execute(ctx, NearestInput{Ref: input.Ref, Month: input.Date1})
	if err != nil {
		return nil, err
	}
	after, err := uc.nearest.Execute(ctx, NearestInput{Ref: input.Ref, Month: date2})
	if err != nil {
		return nil, err
	}

	out := &CompareOutput{Before: *before, After: *after}
	if !before.Found() || !after.Found() {
		out.Note = "no snapshots archived for " + input.Ref
		return out, nil
	}
	if before.Timestamp == after.Timestamp {
		out.Note = "both dates resolve to the same snapshot"
		return out, nil
	}

	_, scope := uc.nearest.Locate(input.Ref)
	beforeText, beforeSrc, err := SnapshotText(SnapshotDir(scope.DataDir, before.Timestamp))
	if err != nil {
		if IsNoText(err) {
			out.Note = "no text output for snapshot " + before.Timestamp
			return out, nil
		}
		return nil, err
	}
	afterText, afterSrc, err := SnapshotText(SnapshotDir(scope.DataDir, after.Timestamp))
	if err != nil {
		if IsNoText(err) {
			out.Note = "no text output for snapshot " + after.Timestamp
			return out, nil
		}
		return nil, err
	}

	out.BeforeSource, out.AfterSource = beforeSrc, afterSrc
	out.Diff, out.Stats = DiffText(beforeText, afterText, input.Context)
	return out, nil
}

type ScheduledRunUseCase struct {
	d       Deps
	bulk    *BulkArchiveUseCase
	cleanup *CleanupUseCase
	logger  *slog.Logger
}

func NewScheduledRunUseCase(d Deps, bulk *BulkArchiveUseCase, cleanup *CleanupUseCase) *ScheduledRunUseCase {
	d = d.withDefaults()
	if bulk == nil {
		bulk = NewBulkArchiveUseCase(d)
	}
	if cleanup == nil {
		cleanup = NewCleanupUseCase(d)
	}
	return &ScheduledRunUseCase{
		d:       d,
		bulk:    bulk,
		cleanup: cleanup,
		logger:  d.Logger.With("component", "schedule"),
	}
}

// Execute runs one archive pass, optionally followed by cleanup, and
// records the report in the journal. The report is returned even when
// the run failed.
func (uc *ScheduledRunUseCase) Execute(ctx context.Context, input ScheduledRunInput) (*RunReport, error) {
	report := NewRunReport(uc.d.Now())
	logger := uc.logger.With("run_id", report.ID.String())
	logger.Info("starting scheduled run")

	bulk, err := uc.bulk.Execute(ctx, BulkInput{})
	if bulk != nil {
		report.Sites = bulk.Results
	}
	if err != nil {
		report.Err = err
	}

	if input.Cleanup && report.Err == nil {
		policy := uc.d.Config.Retention
		cleanup, err := uc.cleanup.Execute(ctx, CleanupInput{Policy: policy})
		if err != nil {
			report.Err = fmt.Errorf("cleanup: %w", err)
		} else {
			report.Cleanup = cleanup.Results
		}
	}

	report.Finished = uc.d.Now()
	uc.d.Metrics.ObserveArchiveRun(report)

	if journal, jerr := uc.d.JournalFor(uc.d.Resolver.Shared()); jerr != nil {
		logger.Warn("could not open run journal", "error", jerr)
	} else if entry, jerr := journal.Record(ctx, report); jerr != nil {
		logger.Warn("could not record run", "error", jerr)
	} else {
		logger.Info("run recorded", "commit", entry.Hash[:7], "path", entry.Path)
	}

	if input.Notify {
		if nerr := uc.d.Notifier.Notify(ctx, report); nerr != nil {
			logger.Warn("notification failed", "error", nerr)
		}
	}

	if report.Err != nil {
		return report, report.Err
	}
	logger.Info("scheduled run complete", "summary", report.Summary())
	return report, nil
}

type JournalLogUseCase struct {
	d Deps
}

func NewJournalLogUseCase(d Deps) *JournalLogUseCase {
	return &JournalLogUseCase{d: d.withDefaults()}
}

func (uc *JournalLogUseCase) Execute(ctx context.Context, input JournalInput) (*JournalOutput, error) {
	scope := uc.d.Resolver.Shared()
	if _, err := os.Stat(filepath.Join(scope.ReportsPath(), ".git")); errors.Is(err, fs.ErrNotExist) {
		if input.Show != "" {
			return nil, ErrNotFound
		}
		return &JournalOutput{}, nil
	}

	journal, err := uc.d.JournalFor(scope)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if input.Show != "" {
		report, err := journal.Show(ctx, input.Show)
		if err != nil {
			return nil, err
		}
		return &JournalOutput{Report: report}, nil
	}

	entries, err := journal.Log(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	return &JournalOutput{Entries: entries}, nil
}

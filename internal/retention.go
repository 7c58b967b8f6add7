package internal

import (
	"fmt"
	"time"
)

type RetentionPolicy struct {
	// MaxAgeDays marks snapshots older than now minus this many days as
	// deletion candidates. 0 disables age-based deletion entirely.
	MaxAgeDays int `yaml:"max_age_days"`

	// KeepMonthlyFirst exempts the earliest snapshot of every month that
	// would otherwise lose snapshots.
	KeepMonthlyFirst bool `yaml:"keep_monthly_first"`

	// DryRun computes the plan but callers must not delete anything.
	DryRun bool `yaml:"dry_run"`
}

func (p RetentionPolicy) Validate() error {
	if p.MaxAgeDays < 0 {
		return fmt.Errorf("%w: max_age_days must be >= 0, got %d", ErrInvalidPolicy, p.MaxAgeDays)
	}
	return nil
}

// Cutoff returns the instant before which snapshots are candidates. The
// second result is false when the policy has no age limit.
func (p RetentionPolicy) Cutoff(now time.Time) (time.Time, bool) {
	if p.MaxAgeDays == 0 {
		return time.Time{}, false
	}
	return now.UTC().AddDate(0, 0, -p.MaxAgeDays), true
}

// RetentionPlan is the outcome of evaluating a policy. Delete is the
// deletion set; Exempt lists candidates spared by KeepMonthlyFirst.
type RetentionPlan struct {
	Policy    RetentionPolicy
	Now       time.Time
	Cutoff    time.Time
	HasCutoff bool
	Delete    []Snapshot
	Exempt    []Snapshot
	Keep      []Snapshot
}

func (p *RetentionPlan) Contains(id SnapshotID) bool {
	for _, s := range p.Delete {
		if s.ID() == id {
			return true
		}
	}
	return false
}

func (p *RetentionPlan) DeleteIDs() []SnapshotID {
	ids := make([]SnapshotID, len(p.Delete))
	for i, s := range p.Delete {
		ids[i] = s.ID()
	}
	return ids
}

// EvaluateRetention decides which snapshots the policy deletes. It never
// touches the registry; every slice in the plan is sorted oldest first.
func EvaluateRetention(snapshots []Snapshot, policy RetentionPolicy, now time.Time) (*RetentionPlan, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	plan := &RetentionPlan{Policy: policy, Now: now}
	all := dedupeSnapshots(snapshots)
	SortSnapshots(all)

	cutoff, ok := policy.Cutoff(now)
	plan.Cutoff, plan.HasCutoff = cutoff, ok
	if !ok {
		plan.Keep = all
		return plan, nil
	}

	candidates := make(map[SnapshotID]bool)
	for _, s := range all {
		if s.Timestamp.Before(cutoff) {
			candidates[s.ID()] = true
		}
	}

	exempt := make(map[SnapshotID]bool)
	if policy.KeepMonthlyFirst && len(candidates) > 0 {
		// all is sorted by (timestamp, url), so the first member seen for a
		// month is that month's minimum.
		firstOfMonth := make(map[YearMonth]SnapshotID)
		for _, s := range all {
			m := s.Month()
			if _, seen := firstOfMonth[m]; !seen {
				firstOfMonth[m] = s.ID()
			}
		}
		for _, id := range firstOfMonth {
			if candidates[id] {
				delete(candidates, id)
				exempt[id] = true
			}
		}
	}

	for _, s := range all {
		id := s.ID()
		switch {
		case candidates[id]:
			plan.Delete = append(plan.Delete, s)
		case exempt[id]:
			plan.Exempt = append(plan.Exempt, s)
			plan.Keep = append(plan.Keep, s)
		default:
			plan.Keep = append(plan.Keep, s)
		}
	}

	return plan, nil
}

// EvaluateRetentionGroups evaluates every group on its own and merges the
// plans, so each group keeps its own monthly firsts.
func EvaluateRetentionGroups(groups [][]Snapshot, policy RetentionPolicy, now time.Time) (*RetentionPlan, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	merged := &RetentionPlan{Policy: policy, Now: now}
	merged.Cutoff, merged.HasCutoff = policy.Cutoff(now)
	for _, g := range groups {
		plan, err := EvaluateRetention(g, policy, now)
		if err != nil {
			return nil, err
		}
		merged.Delete = append(merged.Delete, plan.Delete...)
		merged.Exempt = append(merged.Exempt, plan.Exempt...)
		merged.Keep = append(merged.Keep, plan.Keep...)
	}
	SortSnapshots(merged.Delete)
	SortSnapshots(merged.Exempt)
	SortSnapshots(merged.Keep)
	return merged, nil
}

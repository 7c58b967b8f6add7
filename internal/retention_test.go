package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func snapAt(url, date string) Snapshot {
	return Snapshot{URL: url, Timestamp: day(date)}
}

func dates(snaps []Snapshot) []string {
	out := make([]string, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Timestamp.Format("2006-01-02"))
	}
	return out
}

func TestEvaluateRetentionMonthlyScenario(t *testing.T) {
	snaps := []Snapshot{
		snapAt("https://example.com", "2024-12-15"),
		snapAt("https://example.com", "2024-01-20"),
		snapAt("https://example.com", "2024-07-01"),
		snapAt("https://example.com", "2024-01-05"),
	}
	policy := RetentionPolicy{MaxAgeDays: 180, KeepMonthlyFirst: true}

	plan, err := EvaluateRetention(snaps, policy, day("2025-01-01"))
	require.NoError(t, err)

	assert.Equal(t, day("2024-07-05"), plan.Cutoff)
	assert.Equal(t, []string{"2024-01-20"}, dates(plan.Delete))
	// 2024-07-01 falls before the cutoff but is the first of July.
	assert.Equal(t, []string{"2024-01-05", "2024-07-01"}, dates(plan.Exempt))
	assert.Equal(t, []string{"2024-01-05", "2024-07-01", "2024-12-15"}, dates(plan.Keep))
}

func TestEvaluateRetentionAgeOnly(t *testing.T) {
	now := day("2025-01-01")
	snaps := []Snapshot{
		snapAt("a", "2024-01-05"),
		snapAt("a", "2024-01-20"),
		snapAt("a", "2024-06-01"),
		snapAt("a", "2024-12-31"),
	}
	policy := RetentionPolicy{MaxAgeDays: 30}

	plan, err := EvaluateRetention(snaps, policy, now)
	require.NoError(t, err)

	cutoff, _ := policy.Cutoff(now)
	for _, s := range snaps {
		assert.Equal(t, s.Timestamp.Before(cutoff), plan.Contains(s.ID()), s.Timestamp)
	}
	assert.Empty(t, plan.Exempt)
}

func TestEvaluateRetentionKeepsFirstOfEveryCandidateMonth(t *testing.T) {
	now := day("2025-06-01")
	var snaps []Snapshot
	for _, d := range []string{
		"2023-11-03", "2023-11-01", "2023-11-20",
		"2024-02-10", "2024-02-11",
		"2024-03-31",
		"2025-05-01", "2025-05-02",
	} {
		snaps = append(snaps, snapAt("https://site.test", d))
	}

	plan, err := EvaluateRetention(snaps, RetentionPolicy{MaxAgeDays: 60, KeepMonthlyFirst: true}, now)
	require.NoError(t, err)

	earliest := map[YearMonth]Snapshot{}
	for _, s := range snaps {
		m := s.Month()
		if e, ok := earliest[m]; !ok || s.Timestamp.Before(e.Timestamp) {
			earliest[m] = s
		}
	}
	for _, s := range earliest {
		assert.False(t, plan.Contains(s.ID()), "first of %s deleted", s.Month())
	}
	assert.Equal(t, []string{"2023-11-03", "2023-11-20", "2024-02-11"}, dates(plan.Delete))
}

func TestEvaluateRetentionEmptyInput(t *testing.T) {
	plan, err := EvaluateRetention(nil, RetentionPolicy{MaxAgeDays: 10, KeepMonthlyFirst: true}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, plan.Delete)
	assert.Empty(t, plan.DeleteIDs())
}

func TestEvaluateRetentionZeroDaysKeepsEverything(t *testing.T) {
	snaps := []Snapshot{snapAt("a", "2000-01-01"), snapAt("a", "2010-01-01")}
	plan, err := EvaluateRetention(snaps, RetentionPolicy{MaxAgeDays: 0}, day("2025-01-01"))
	require.NoError(t, err)
	assert.False(t, plan.HasCutoff)
	assert.Empty(t, plan.Delete)
	assert.Len(t, plan.Keep, 2)
}

func TestEvaluateRetentionNegativeDays(t *testing.T) {
	_, err := EvaluateRetention(nil, RetentionPolicy{MaxAgeDays: -1}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestEvaluateRetentionDuplicatesAndTies(t *testing.T) {
	ts := day("2024-01-01")
	snaps := []Snapshot{
		{URL: "https://b.test", Timestamp: ts},
		{URL: "https://a.test", Timestamp: ts},
		{URL: "https://a.test", Timestamp: ts},
	}
	plan, err := EvaluateRetention(snaps, RetentionPolicy{MaxAgeDays: 1, KeepMonthlyFirst: true}, day("2025-01-01"))
	require.NoError(t, err)

	require.Len(t, plan.Exempt, 1)
	assert.Equal(t, "https://a.test", plan.Exempt[0].URL)
	require.Len(t, plan.Delete, 1)
	assert.Equal(t, "https://b.test", plan.Delete[0].URL)
}

func TestEvaluateRetentionDeterministic(t *testing.T) {
	snaps := []Snapshot{
		snapAt("c", "2024-01-02"),
		snapAt("a", "2024-01-02"),
		snapAt("b", "2024-01-01"),
		snapAt("a", "2024-02-09"),
	}
	policy := RetentionPolicy{MaxAgeDays: 30, KeepMonthlyFirst: true}
	now := day("2025-01-01")

	first, err := EvaluateRetention(snaps, policy, now)
	require.NoError(t, err)
	reversed := []Snapshot{snaps[3], snaps[2], snaps[1], snaps[0]}
	second, err := EvaluateRetention(reversed, policy, now)
	require.NoError(t, err)

	assert.Equal(t, first.DeleteIDs(), second.DeleteIDs())
}

func TestEvaluateRetentionGroupsKeepsFirstPerGroup(t *testing.T) {
	now := day("2024-03-31")
	alpha := []Snapshot{snapAt("https://alpha.test", "2024-01-05"), snapAt("https://alpha.test", "2024-01-20")}
	beta := []Snapshot{snapAt("https://beta.test", "2024-01-10")}
	policy := RetentionPolicy{MaxAgeDays: 30, KeepMonthlyFirst: true}

	plan, err := EvaluateRetentionGroups([][]Snapshot{alpha, beta}, policy, now)
	require.NoError(t, err)

	assert.Equal(t, day("2024-03-01"), plan.Cutoff)
	assert.True(t, plan.HasCutoff)
	assert.Equal(t, []string{"2024-01-20"}, dates(plan.Delete))
	assert.Equal(t, []string{"2024-01-05", "2024-01-10"}, dates(plan.Exempt))

	// evaluated as one list, beta's only January capture would go
	single, err := EvaluateRetention(append(append([]Snapshot{}, alpha...), beta...), policy, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-10", "2024-01-20"}, dates(single.Delete))

	_, err = EvaluateRetentionGroups(nil, RetentionPolicy{MaxAgeDays: -1}, now)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

package internal

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveArchiveRun(t *testing.T) {
	m := NewMetrics(nil)
	r := sampleReport(time.Date(2025, time.March, 1, 2, 0, 0, 0, time.UTC))

	m.ObserveArchiveRun(r)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sitesArchived.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sitesArchived.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("archive", "failure")))
	assert.Equal(t, float64(r.Finished.Unix()), testutil.ToFloat64(m.lastRun.WithLabelValues("archive")))
}

func TestMetricsObserveCleanup(t *testing.T) {
	m := NewMetrics(nil)
	finished := time.Unix(1700000000, 0)

	m.ObserveCleanup([]CleanupResult{
		{Scope: "shared", Deleted: 4, Exempt: 2},
		{Scope: "site:acme", Deleted: 9, DryRun: true},
	}, finished)
	m.ObserveCleanup([]CleanupResult{{Scope: "shared", Err: errors.New("boom")}}, finished)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.snapshotsDeleted.WithLabelValues("shared")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.snapshotsDeleted.WithLabelValues("site:acme")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cleanupExempt.WithLabelValues("shared")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("cleanup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("cleanup", "failure")))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveArchiveRun(NewRunReport(time.Now()))
		m.ObserveCleanup(nil, time.Now())
	})
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveCleanup([]CleanupResult{{Scope: "shared", Deleted: 1}}, time.Now())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `archivist_snapshots_deleted_total{scope="shared"} 1`))
}

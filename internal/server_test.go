package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*testEnv, http.Handler) {
	t.Helper()
	env := newTestEnv(t, Site{Name: "Alpha", URL: "https://a.test", Client: "Acme"})
	env.now = time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	retentionFixture(t, env.shared())
	srv := NewServer(env.cfg, env.useCases(), NewMetrics(nil), nil, nil)
	return env, srv.Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServerHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServerSites(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/api/sites")
	require.Equal(t, http.StatusOK, rec.Code)

	var sites []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sites))
	require.Len(t, sites, 1)
	assert.Equal(t, "alpha", sites[0]["slug"])
	assert.Equal(t, "shared", sites[0]["scope"])
	assert.Equal(t, true, sites[0]["monthly"])
}

func TestServerSnapshots(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/api/snapshots?month=2024-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []SnapshotView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "1704412800", views[0].Timestamp)
	assert.Equal(t, "2024-01-05T00:00:00Z", views[0].Time)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/snapshots?limit=ten").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/snapshots?month=soon").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/snapshots?site=nope").Code)
}

func TestServerNearest(t *testing.T) {
	_, h := newTestServer(t)

	rec := get(t, h, "/api/nearest?site=Alpha&month=2024-02")
	require.Equal(t, http.StatusOK, rec.Code)
	var link LinkView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Equal(t, "found", link.Status)
	assert.Equal(t, "2024-02", link.Target)
	assert.Equal(t, "/archive/1710892800/", link.Link)
	assert.Equal(t, 1, link.Distance)

	rec = get(t, h, "/api/nearest?url=https://missing.test")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/nearest").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/nearest?site=Alpha&months_ago=-2").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/nearest?site=Alpha&months_ago=x").Code)
}

func TestServerRedirect(t *testing.T) {
	_, h := newTestServer(t)

	// httptest requests arrive for host example.com; the default UI host is a wildcard.
	rec := get(t, h, "/go/alpha?month=2024-01")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://example.com:8001/archive/1705708800/", rec.Header().Get("Location"))

	rec = get(t, h, "/go/nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerRedirectUIAddress(t *testing.T) {
	env, _ := newTestServer(t)
	env.cfg.Server.Host = "archive.lan"
	env.cfg.Server.Port = 9000
	h := NewServer(env.cfg, env.useCases(), nil, nil, nil).Handler()

	rec := get(t, h, "/go/alpha?month=2024-01")
	assert.Equal(t, "http://archive.lan:9000/archive/1705708800/", rec.Header().Get("Location"))

	env.cfg.ArchiveBox.ServerBase = "https://archive.example.org/"
	h = NewServer(env.cfg, env.useCases(), nil, nil, nil).Handler()

	rec = get(t, h, "/go/alpha?month=2024-01")
	assert.Equal(t, "https://archive.example.org/archive/1705708800/", rec.Header().Get("Location"))
}

func TestServerSchedule(t *testing.T) {
	env, h := newTestServer(t)
	rec := get(t, h, "/api/schedule")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, env.cfg.Schedule.Archive, body["archive"])
	assert.Empty(t, body["next"])
}

func TestServerMetrics(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "archivist_run_duration_seconds"))
}

package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes read-only lookups, health and metrics over HTTP while
// the daemon runs.
type Server struct {
	cfg       *Config
	uc        *UseCases
	metrics   *Metrics
	scheduler *Scheduler
	logger    *slog.Logger
	router    *chi.Mux
}

func NewServer(cfg *Config, uc *UseCases, metrics *Metrics, scheduler *Scheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = discardLogger()
	}
	s := &Server{
		cfg:       cfg,
		uc:        uc,
		metrics:   metrics,
		scheduler: scheduler,
		logger:    logger.With("component", "http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/sites", s.handleSites)
		r.Get("/snapshots", s.handleSnapshots)
		r.Get("/nearest", s.handleNearest)
		r.Get("/schedule", s.handleSchedule)
	})
	r.Get("/go/{site}", s.handleRedirect)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type siteView struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Slug    string   `json:"slug"`
	Client  string   `json:"client,omitempty"`
	Scope   string   `json:"scope"`
	Monthly bool     `json:"monthly"`
	Tags    []string `json:"tags,omitempty"`
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	views := make([]siteView, 0, len(s.cfg.Sites))
	for _, site := range s.cfg.Sites {
		views = append(views, siteView{
			Name:    site.Name,
			URL:     site.URL,
			Slug:    site.ResolvedSlug(),
			Client:  site.Client,
			Scope:   s.uc.Resolver.For(site).String(),
			Monthly: site.Monthly(),
			Tags:    site.Tags,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := s.uc.List.Execute(r.Context(), ListInput{
		Client: q.Get("client"),
		Month:  q.Get("month"),
		Site:   q.Get("site"),
		URL:    q.Get("url"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	views := make([]SnapshotView, 0, len(out.Snapshots))
	for _, ls := range out.Snapshots {
		views = append(views, NewSnapshotView(ls.Scope, ls.Snapshot))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := q.Get("url")
	if ref == "" {
		ref = q.Get("site")
	}
	if ref == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("url or site is required"))
		return
	}
	res, err := s.nearest(r, ref, "")
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	status := http.StatusOK
	if !res.Found() {
		status = http.StatusNotFound
	}
	writeJSON(w, status, NewLinkView(*res))
}

// handleRedirect sends the client to the snapshot of a site nearest to
// the requested month, the current one by default. Links point at the
// ArchiveBox web UI, never at this listener.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	res, err := s.nearest(r, chi.URLParam(r, "site"), s.uiBase(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !res.Found() {
		writeJSON(w, http.StatusNotFound, NewLinkView(*res))
		return
	}
	http.Redirect(w, r, res.Link, http.StatusFound)
}

// uiBase is the configured server_base, or the address `archivist server`
// runs the ArchiveBox UI on. A wildcard host is replaced by the host the
// request came in on.
func (s *Server) uiBase(r *http.Request) string {
	if s.cfg.ArchiveBox.ServerBase != "" {
		return s.cfg.ArchiveBox.ServerBase
	}
	host := s.cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = r.Host
		if h, _, err := net.SplitHostPort(r.Host); err == nil {
			host = h
		}
		if host == "" {
			host = "localhost"
		}
	}
	port := s.cfg.Server.Port
	if port == 0 {
		port = DefaultPort
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

func (s *Server) nearest(r *http.Request, ref, serverBase string) (*ResolvedLink, error) {
	q := r.URL.Query()
	monthsAgo, err := intParam(q.Get("months_ago"))
	if err != nil {
		return nil, err
	}
	return s.uc.Nearest.Execute(r.Context(), NearestInput{
		Ref:        ref,
		Month:      q.Get("month"),
		MonthsAgo:  monthsAgo,
		ServerBase: serverBase,
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	next := map[string]string{}
	if s.scheduler != nil {
		for name, t := range s.scheduler.NextRuns() {
			next[name] = t.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"archive": s.cfg.Schedule.Archive,
		"cleanup": s.cfg.Schedule.Cleanup,
		"next":    next,
	})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errBadParam, v)
	}
	return n, nil
}

var errBadParam = errors.New("bad parameter")

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSiteNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidMonth), errors.Is(err, ErrInvalidPolicy), errors.Is(err, errBadParam):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// StatsSnapshot is the subset of executor/feed state the health
// endpoint reports, gathered by the caller at request time via
// SnapshotFunc — this package has no dependency on internal/exec or
// internal/feed, keeping the monitor package importable from either.
type StatsSnapshot struct {
	UptimeSeconds float64        `json:"uptime_seconds"`
	FeedStates    map[string]string `json:"feed_states"`
	Executor      ExecutorSnapshot `json:"executor"`
}

// ExecutorSnapshot mirrors exec.Stats's atomic counters as plain values
// for JSON encoding.
type ExecutorSnapshot struct {
	TotalRequests  int64 `json:"total_requests"`
	BothSuccess    int64 `json:"both_success"`
	PartialSuccess int64 `json:"partial_success"`
	TotalFailures  int64 `json:"total_failures"`
}

// SnapshotFunc gathers the current StatsSnapshot on demand; supplied by
// the process wiring everything together, since this package cannot
// import internal/exec or internal/feed without creating an import
// cycle back through internal/domain.
type SnapshotFunc func() StatsSnapshot

// HealthServer is the core's own liveness/readiness HTTP surface —
// distinct from the framed TCP protocol Publisher speaks to the
// external monitoring server. An operator or supervisor process hits
// this directly; it is local-only by default.
type HealthServer struct {
	addr     string
	snapshot SnapshotFunc
	log      zerolog.Logger
	srv      *http.Server
	start    time.Time
}

// NewHealthServer builds a HealthServer bound to addr, using snapshot
// to answer /health and /stats requests.
func NewHealthServer(addr string, snapshot SnapshotFunc, log zerolog.Logger) *HealthServer {
	return &HealthServer{addr: addr, snapshot: snapshot, log: log, start: time.Now()}
}

func (h *HealthServer) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
	return r
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *HealthServer) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot()
	snap.UptimeSeconds = time.Since(h.start).Seconds()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// Start begins serving in a background goroutine and returns
// immediately; bind failures are logged, not returned, since the health
// endpoint is a convenience surface and must never block core startup.
func (h *HealthServer) Start() {
	if h.addr == "" {
		return
	}
	h.srv = &http.Server{
		Addr:         h.addr,
		Handler:      h.router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	go func() {
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.Warn().Err(err).Str("addr", h.addr).Msg("health server stopped")
		}
	}()
}

// Shutdown gracefully stops the health server, if it was started.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.srv == nil {
		return nil
	}
	return h.srv.Shutdown(ctx)
}

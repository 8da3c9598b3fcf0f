package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/causetlabs/causet/internal/logger"
	"github.com/causetlabs/causet/pkg/ingest"
	"github.com/causetlabs/causet/pkg/metrics"
)

// Status is the JSON document served at /status.
type Status struct {
	InstanceID string `json:"instance_id"`
	StartedAt  string `json:"started_at"`
	Uptime     string `json:"uptime"`

	Head        uint64  `json:"head"`
	Tail        uint64  `json:"tail"`
	Capacity    uint64  `json:"capacity"`
	Utilization float64 `json:"utilization"`

	BlobCursor   uint64 `json:"blob_cursor"`
	BlobCapacity uint64 `json:"blob_capacity"`

	IPCClients int `json:"ipc_clients"`

	Counters ingest.Snapshot `json:"counters"`
}

// newRouter builds the observability endpoint: /status for humans and the
// status command, /metrics for Prometheus.
func (s *Server) newRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/status", s.handleStatus)

	if h := metrics.Handler(); h != nil {
		r.Handle("/metrics", h)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/status", http.StatusTemporaryRedirect)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.currentStatus()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logger.Error("status encode error", logger.Err(err)...)
	}
}

// currentStatus snapshots the engine state. Values are individually atomic,
// advisory as a whole.
func (s *Server) currentStatus() Status {
	geo := s.journal.Geometry()
	return Status{
		InstanceID:   s.pipeline.InstanceID().String(),
		StartedAt:    s.startedAt.Format(time.RFC3339),
		Uptime:       time.Since(s.startedAt).Round(time.Second).String(),
		Head:         s.cursor.Head(),
		Tail:         s.cursor.Tail(),
		Capacity:     s.cursor.Capacity(),
		Utilization:  s.cursor.Utilization(),
		BlobCursor:   s.journal.BlobCursor(),
		BlobCapacity: geo.BlobCapacity,
		IPCClients:   s.broadcaster.ClientCount(),
		Counters:     s.view.Stats(),
	}
}

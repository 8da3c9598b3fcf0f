// Package server assembles the sequencing engine from its parts: the
// memory-mapped journal, the ring cursor, the IPC notification socket, the
// UDP ingest pipeline and the observability HTTP endpoint.
//
// One Server is one writer process. The journal file and notification socket
// are exclusive to it; observers attach read-only through pkg/reader and the
// IPC client.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/causetlabs/causet/internal/logger"
	"github.com/causetlabs/causet/pkg/config"
	"github.com/causetlabs/causet/pkg/ingest"
	"github.com/causetlabs/causet/pkg/ipc"
	"github.com/causetlabs/causet/pkg/journal"
	"github.com/causetlabs/causet/pkg/metrics"
	"github.com/causetlabs/causet/pkg/reader"
)

// JournalFileName is the journal file created inside the configured
// journal directory.
const JournalFileName = "journal.dat"

// Server owns the full ingest stack for one writer process.
type Server struct {
	cfg *config.Config

	journal     *journal.Journal
	cursor      *journal.Cursor
	broadcaster *ipc.Broadcaster
	pipeline    *ingest.Pipeline
	view        *reader.View

	httpServer *http.Server
	startedAt  time.Time
}

// New builds the server from configuration: opens (or creates) the journal,
// binds the notification socket and the UDP listener. Nothing starts serving
// until Serve.
func New(cfg *config.Config) (*Server, error) {
	if err := os.MkdirAll(cfg.Journal.Path, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	journalPath := filepath.Join(cfg.Journal.Path, JournalFileName)
	j, err := journal.Open(journalPath, journal.Config{
		TotalSize:       cfg.Journal.TotalSize.Uint64(),
		IndexRegionSize: cfg.Journal.IndexRegionSize.Uint64(),
		BlobPolicy:      journal.BlobPolicy(cfg.Journal.BlobPolicy),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	logger.Info("journal opened",
		logger.KeyPath, journalPath,
		logger.KeyCapacity, j.SlotCount(),
	)

	cursor := journal.NewCursor(j.SlotCount())

	if err := os.MkdirAll(filepath.Dir(cfg.IPC.SocketPath), 0755); err != nil {
		j.Close()
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	broadcaster, err := ipc.Listen(cfg.IPC.SocketPath)
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("listen notification socket: %w", err)
	}
	logger.Info("notification socket listening", logger.KeyPath, cfg.IPC.SocketPath)

	counters := ingest.NewCounters()
	pipeline, err := ingest.New(ingest.Config{
		BindAddr: cfg.Ingest.BindAddr,
		Depth:    cfg.Ingest.Depth,
	}, j, cursor, counters, broadcaster, metrics.NewIngestMetrics())
	if err != nil {
		broadcaster.Close()
		j.Close()
		return nil, fmt.Errorf("create ingest pipeline: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		journal:     j,
		cursor:      cursor,
		broadcaster: broadcaster,
		pipeline:    pipeline,
		view:        reader.NewView(j, cursor, counters),
	}

	if cfg.Metrics.Enabled {
		s.httpServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:      s.newRouter(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}

	return s, nil
}

// View returns the read-only consumption facade over the live journal.
func (s *Server) View() *reader.View {
	return s.view
}

// IngestAddr returns the bound UDP ingest address. Useful when the
// configured bind address uses port 0.
func (s *Server) IngestAddr() net.Addr {
	return s.pipeline.LocalAddr()
}

// Serve runs the engine until ctx is cancelled, then shuts everything down:
// HTTP listener first, then the notification socket, finally the journal is
// synced and unmapped.
func (s *Server) Serve(ctx context.Context) error {
	s.startedAt = time.Now()

	if s.httpServer != nil {
		go func() {
			logger.Info("http endpoint listening", logger.KeyAddr, s.httpServer.Addr)
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http endpoint failed", logger.Err(err)...)
			}
		}()
	}

	err := s.pipeline.Run(ctx)

	s.shutdown()
	return err
}

// shutdown tears down everything the pipeline does not own.
func (s *Server) shutdown() {
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", logger.Err(err)...)
		}
	}

	if err := s.broadcaster.Close(); err != nil {
		logger.Error("notification socket close error", logger.Err(err)...)
	}

	if err := s.journal.Close(); err != nil {
		logger.Error("journal close error", logger.Err(err)...)
	} else {
		logger.Info("journal closed",
			logger.KeyHead, s.cursor.Head(),
			logger.KeyTail, s.cursor.Tail(),
		)
	}
}

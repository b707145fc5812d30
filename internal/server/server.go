// Package server is the thin HTTP shell around the sync engine.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/pkg/logger"
	"github.com/snitinshk/notion-supabase-sync/pkg/syncer"
)

// Pinger checks reachability of one side of the pipeline.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes POST /sync, GET /healthz, and GET /metrics. It does not
// serialize concurrent sync invocations; single-flight is the caller's
// concern.
type Server struct {
	engine *syncer.Engine
	dest   Pinger
	addr   string
	logger *zap.Logger
}

// New creates a Server.
func New(engine *syncer.Engine, dest Pinger, addr string, logger *zap.Logger) *Server {
	return &Server{
		engine: engine,
		dest:   dest,
		addr:   addr,
		logger: logger.With(zap.String("component", "server")),
	}
}

// ListenAndServe blocks serving HTTP until the listener fails.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Minute, // sync runs can be long
	}

	s.logger.Info("listening", zap.String("addr", s.addr))
	return srv.ListenAndServe()
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var opts syncer.Options
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	// Every triggered run gets its own id; the context carries it into
	// every log line of the run.
	ctx := context.WithValue(r.Context(), logger.DatabaseIDKey, s.engine.DatabaseID())
	ctx = context.WithValue(ctx, logger.RunIDKey, newRunID())
	log := logger.WithContext(ctx)

	log.Info("sync run requested",
		zap.Bool("force_full_sync", opts.ForceFullSync),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("max_records", opts.MaxRecords))

	result, err := s.engine.Sync(ctx, opts)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		log.Error("sync failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  err.Error(),
			"result": result,
		})
		return
	}

	_ = json.NewEncoder(w).Encode(result)
}

// newRunID returns a short random identifier for one triggered run.
func newRunID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.dest.Ping(ctx); err != nil {
		http.Error(w, "destination unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Package server exposes the pipeline over HTTP: run triggers, run history
// and a websocket progress feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"specforge/internal/analysis"
	"specforge/internal/artifact"
	"specforge/internal/broadcast"
	"specforge/internal/config"
	"specforge/internal/logger"
	"specforge/internal/orchestrator"
	"specforge/internal/runstore"
)

// Server wires the orchestrator, run store and broadcast broker behind an
// http.Server.
type Server struct {
	log    *logger.Logger
	cfg    *config.Config
	broker *broadcast.Broker
	store  runstore.Store
	writer *artifact.Writer
	az     analysis.Analyzer

	httpSrv *http.Server

	mu      sync.Mutex
	running bool
	current *orchestrator.Orchestrator
}

// New assembles a server. analyzer may be nil.
func New(log *logger.Logger, cfg *config.Config, store runstore.Store, az analysis.Analyzer) *Server {
	s := &Server{
		log:    log.WithComponent("server"),
		cfg:    cfg,
		broker: broadcast.NewBroker(),
		store:  store,
		writer: artifact.NewWriter(cfg.OutDir),
		az:     az,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", s.handleStartRun)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /ws/progress", s.handleProgressWS)
	s.httpSrv = &http.Server{
		Addr:              cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Infof("listening on %s", s.cfg.Port)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type startRunRequest struct {
	SourcePath string `json:"source_path"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.SourcePath) == "" {
		writeError(w, http.StatusBadRequest, "source_path is required")
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	orch := orchestrator.NewDefault(s.log, s.broker, orchestrator.Pipeline{
		TestOptions: s.cfg.Tests,
		MockConfig:  s.cfg.Mock,
		Analyzer:    s.az,
	})
	s.running = true
	s.current = orch
	s.mu.Unlock()

	go s.executeRun(orch, req.SourcePath)
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "started", "source_path": req.SourcePath})
}

// executeRun drives one orchestration to completion, persisting the result
// and releasing the single-run slot.
func (s *Server) executeRun(orch *orchestrator.Orchestrator, sourcePath string) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	result, err := orch.Orchestrate(context.Background(), sourcePath)
	if err != nil {
		s.log.Errorf("run failed to start: %v", err)
		s.broker.Publish(broadcast.Event{Type: broadcast.EventError, Message: err.Error()})
		return
	}
	if _, _, err := s.writer.WriteRun(result); err != nil {
		s.log.Errorf("write artifacts: %v", err)
	}
	if err := s.store.Save(result); err != nil {
		s.log.Errorf("persist run: %v", err)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	runs, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.store.Load(id)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such run")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	orch := s.current
	running := s.running
	s.mu.Unlock()
	if orch == nil {
		writeJSON(w, http.StatusOK, map[string]any{"is_running": false})
		return
	}
	st := orch.Status()
	st.IsRunning = running
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

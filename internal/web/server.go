// Package web exposes the synchronized snapshot, its history and the action state over HTTP.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/domain"
)

const heartbeatInterval = 30 * time.Second

type snapshotSource interface {
	Get() domain.Snapshot
	Subscribe() <-chan domain.Snapshot
	Unsubscribe(ch <-chan domain.Snapshot)
}

type historyReader interface {
	SnapshotsAfter(index uint64, limit int) ([]domain.SnapshotRecord, error)
}

type actionMachine interface {
	Current() domain.ActionKind
	Open(kind domain.ActionKind) error
	Close()
}

// Server serves the HTTP API.
type Server struct {
	Addr     string
	State    snapshotSource
	History  historyReader
	Actions  actionMachine
	Gatherer prometheus.Gatherer

	l *zap.Logger
}

// NewServer creates a server. History and Gatherer may be nil, the matching endpoints then answer 503.
func NewServer(l *zap.Logger, addr string, state snapshotSource, history historyReader, actions actionMachine,
	gatherer prometheus.Gatherer) *Server {
	return &Server{
		Addr:     addr,
		State:    state,
		History:  history,
		Actions:  actions,
		Gatherer: gatherer,
		l:        l,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /snapshot/stream", s.handleSnapshotStream)
	mux.HandleFunc("GET /snapshot/history", s.handleHistory)
	mux.HandleFunc("GET /action", s.handleGetAction)
	mux.HandleFunc("POST /action", s.handleOpenAction)
	mux.HandleFunc("POST /action/close", s.handleCloseAction)
	if s.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("http server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.State.Get()
	if snap.Loading {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"loading": true})
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSnapshotStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	changes := s.State.Subscribe()
	defer s.State.Unsubscribe(changes)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(snap domain.Snapshot) bool {
		payload, err := json.Marshal(snap)
		if err != nil {
			s.l.Error("encode snapshot", zap.Error(err))
			return false
		}
		fmt.Fprintf(w, "event: snapshot\n")
		fmt.Fprintf(w, "id: %d\n", snap.BlockNumber)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return true
	}

	if snap := s.State.Get(); !snap.Loading {
		if !send(snap) {
			return
		}
	} else {
		flusher.Flush()
	}

	// send a comment heartbeat so proxies keep the connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case snap, ok := <-changes:
			if !ok || !send(snap) {
				return
			}
		}
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		http.Error(w, "snapshot history not available", http.StatusServiceUnavailable)
		return
	}

	after, err := queryUint(r, "after")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryUint(r, "limit")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := s.History.SnapshotsAfter(after, int(limit))
	if err != nil {
		s.l.Error("read snapshot history", zap.Uint64("after", after), zap.Error(err))
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []domain.SnapshotRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

type actionPayload struct {
	Kind domain.ActionKind `json:"kind"`
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, actionPayload{Kind: s.Actions.Current()})
}

func (s *Server) handleOpenAction(w http.ResponseWriter, r *http.Request) {
	var req actionPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid action: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Actions.Open(req.Kind); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, actionPayload{Kind: s.Actions.Current()})
}

func (s *Server) handleCloseAction(w http.ResponseWriter, r *http.Request) {
	s.Actions.Close()
	s.writeJSON(w, http.StatusOK, actionPayload{Kind: s.Actions.Current()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn("write response", zap.Error(err))
	}
}

func queryUint(r *http.Request, name string) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

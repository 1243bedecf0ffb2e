// Package api serves the event log and service status to the settings UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/usecase"
)

const maxLogBody = 4096

// Service is the façade the handlers read from.
type Service interface {
	Logs() []domain.LogEntry
	AddLog(message string) bool
	Status() usecase.Status
}

// Server exposes the UI endpoints.
type Server struct {
	service Service
	metrics http.Handler
	logger  *zap.Logger
	srv     *http.Server
}

// NewServer creates the API server. metrics may be nil.
func NewServer(addr string, service Service, metrics http.Handler, logger *zap.Logger) *Server {
	s := &Server{service: service, metrics: metrics, logger: logger}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /logs", s.handleGetLogs)
	mux.HandleFunc("POST /logs", s.handleAddLog)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("api listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type logLine struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Line      string    `json:"line"`
}

func (s *Server) handleGetLogs(w http.ResponseWriter, _ *http.Request) {
	entries := s.service.Logs()
	out := make([]logLine, 0, len(entries))
	for _, e := range entries {
		out = append(out, logLine{Timestamp: e.Timestamp, Message: e.Message, Line: e.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

type addLogRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleAddLog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLogBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	var req addLogRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !s.service.AddLog(req.Message) {
		writeError(w, http.StatusBadRequest, "message is empty")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

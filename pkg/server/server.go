// Package server exposes the assistant over HTTP: a buffered endpoint, a
// streaming endpoint, session history, and a health probe.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/applyflow/applyflow/pkg/events"
	"github.com/applyflow/applyflow/pkg/orchestrator"
	"github.com/applyflow/applyflow/pkg/sessions"
)

type Server struct {
	orch        *orchestrator.Orchestrator
	storageKind string
	addr        string
	sinks       []events.EventSink
}

type Option func(*Server)

// WithEventSinks attaches sinks to every request context, so routing
// decisions and errors reach observers such as an event router.
func WithEventSinks(sinks ...events.EventSink) Option {
	return func(s *Server) { s.sinks = append(s.sinks, sinks...) }
}

func New(orch *orchestrator.Orchestrator, storageKind, addr string, opts ...Option) *Server {
	s := &Server{orch: orch, storageKind: storageKind, addr: addr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type promptRequest struct {
	Prompt   string `json:"prompt"`
	ThreadID string `json:"thread_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodePrompt(w http.ResponseWriter, r *http.Request) (*promptRequest, bool) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "No prompt provided")
		return nil, false
	}
	return &req, true
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePrompt(w, r)
	if !ok {
		return
	}

	ctx := events.WithEventSinks(r.Context(), s.sinks...)
	answer, err := s.orch.Respond(ctx, req.ThreadID, req.Prompt)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sessions.ErrStorageUnavailable) {
			status = http.StatusServiceUnavailable
		}
		log.Error().Err(err).Str("thread_id", req.ThreadID).Msg("agent request failed")
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(answer))
}

func (s *Server) handleAgentStreaming(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePrompt(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)

	wroteHeader := false
	onChunk := func(chunk string) error {
		if !wroteHeader {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			wroteHeader = true
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	}

	ctx := events.WithEventSinks(r.Context(), s.sinks...)
	_, err := s.orch.RespondStream(ctx, req.ThreadID, req.Prompt, onChunk)
	if err != nil {
		log.Error().Err(err).Str("thread_id", req.ThreadID).Msg("streaming agent request failed")
		if !wroteHeader {
			status := http.StatusInternalServerError
			if errors.Is(err, sessions.ErrStorageUnavailable) {
				status = http.StatusServiceUnavailable
			}
			writeError(w, status, err.Error())
		}
		return
	}
	if !wroteHeader {
		// The model never signaled readiness, so nothing streamed. An
		// empty 200 keeps the contract: zero chunks, not an error.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	history, err := s.orch.History(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sessions.ErrStorageUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      history,
		"count":      len(history),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"storage_backend": s.storageKind,
	})
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /agent", s.handleAgent)
	mux.HandleFunc("POST /agent-streaming", s.handleAgentStreaming)
	mux.HandleFunc("GET /sessions/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "server shutdown")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server listen")
	}
}

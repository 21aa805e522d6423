// Package server exposes a bench.Controller over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/docker/go-units"

	"github.com/weiihann/wasmbench/bench"
)

// MaxRequestBytes bounds the body of POST /api/run.
const MaxRequestBytes = 64 * units.MiB

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":9090".
	Addr string
	// AssetsDir is served at / when non-empty.
	AssetsDir string
	Logger    *slog.Logger
}

// Server serves the benchmark API.
type Server struct {
	ctrl   bench.Controller
	logger *slog.Logger
	http   *http.Server
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// ElapsedMs is the time spent in the module call before it failed.
	ElapsedMs float64 `json:"elapsed_ms,omitempty"`
}

// RunResponse is the body of POST /api/run.
type RunResponse struct {
	View   bench.View    `json:"view"`
	Result *bench.Result `json:"result,omitempty"`
	Error  *ErrorBody    `json:"error,omitempty"`
}

// New builds a Server around ctrl.
func New(ctrl bench.Controller, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		ctrl:   ctrl,
		logger: logger,
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.AssetsDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) routes(assetsDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/modules", s.handleModules)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/run", s.handleRun)

	if assetsDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(assetsDir)))
	}

	return s.logRequests(mux)
}

func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Modules())
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.View())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req bench.Request

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, RunResponse{
			View:  s.ctrl.View(),
			Error: &ErrorBody{Kind: "bad_request", Message: fmt.Sprintf("decode request: %v", err)},
		})
		return
	}

	if req.Module == "" {
		s.writeJSON(w, http.StatusBadRequest, RunResponse{
			View:  s.ctrl.View(),
			Error: &ErrorBody{Kind: "bad_request", Message: "module is required"},
		})
		return
	}

	res, err := s.ctrl.Run(r.Context(), req)
	if err != nil {
		body := &ErrorBody{Kind: bench.Kind(err), Message: err.Error()}

		var runErr *bench.RunError
		if errors.As(err, &runErr) {
			body.ElapsedMs = runErr.ElapsedMs
		}

		s.writeJSON(w, statusFor(body.Kind), RunResponse{
			View:  s.ctrl.View(),
			Error: body,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, RunResponse{
		View:   s.ctrl.View(),
		Result: res,
	})
}

func statusFor(kind string) int {
	switch kind {
	case "unknown_module":
		return http.StatusNotFound
	case "marshal":
		return http.StatusBadRequest
	case "call_failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", slog.String("error", err.Error()))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully. ready, when non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, ready func(addr net.Addr)) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}

	if ready != nil {
		ready(ln.Addr())
	}

	s.logger.InfoContext(ctx, "serving", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	}
}

// Package server exposes the operator registry over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)

// Invoker runs operators on behalf of a host surface.
type Invoker interface {
	ResolveOperator(ctx context.Context, uri string, params operator.Params) (*types.Property, error)
	ExecuteOperator(ctx context.Context, uri string, params operator.Params) (*operator.Summary, error)
}

// InvokeRequest is the body of the resolve and execute endpoints.
type InvokeRequest struct {
	Params operator.Params `json:"params"`
}

// ResolveResponse is returned by the resolve endpoint.
type ResolveResponse struct {
	Property *types.Property `json:"property"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Summary *operator.Summary `json:"summary,omitempty"`
}

// Server serves the operator API.
type Server struct {
	Invoker  Invoker
	Registry *operator.Registry
	Logger   *slog.Logger
	Metrics  *Metrics

	gatherer prometheus.Gatherer
}

// New creates a server with its own metrics registry.
func New(inv Invoker, reg *operator.Registry, logger *slog.Logger) *Server {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	return &Server{
		Invoker:  inv,
		Registry: reg,
		Logger:   logger,
		Metrics:  NewMetrics(promReg),
		gatherer: promReg,
	}
}

// Handler returns the HTTP handler. Operator names containing "/" must be
// path-escaped.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Get("/operators", s.listOperators)
	r.Post("/operators/{name}/resolve", s.resolve)
	r.Post("/operators/{name}/execute", s.execute)
	return r
}

func (s *Server) listOperators(w http.ResponseWriter, r *http.Request) {
	configs := []operator.Config{}
	for _, e := range s.Registry.List() {
		cfg := e.Operator.Config()
		cfg.Name = e.URI
		configs = append(configs, cfg)
	}
	writeJSON(w, http.StatusOK, map[string]any{"operators": configs})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (string, operator.Params, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid operator name"})
		return "", nil, false
	}
	var req InvokeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
			s.Logger.Warn("invalid request body", "operator", name, "error", err)
			return "", nil, false
		}
	}
	return name, req.Params, true
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	name, params, ok := s.decode(w, r)
	if !ok {
		return
	}

	start := time.Now()
	prop, err := s.Invoker.ResolveOperator(r.Context(), name, params)
	s.Metrics.Observe(name, PhaseResolve, start, err)
	if err != nil {
		s.fail(w, name, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Property: prop})
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	name, params, ok := s.decode(w, r)
	if !ok {
		return
	}

	start := time.Now()
	summary, err := s.Invoker.ExecuteOperator(r.Context(), name, params)
	s.Metrics.Observe(name, PhaseExecute, start, err)
	if err != nil {
		s.fail(w, name, err, summary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) fail(w http.ResponseWriter, name string, err error, summary *operator.Summary) {
	code := http.StatusInternalServerError
	if errors.Is(err, operator.ErrOperatorNotFound) {
		code = http.StatusNotFound
	} else {
		s.Logger.Error("operator failed", "operator", name, "error", err)
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error(), Summary: summary})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// ListenAndServe serves the API on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("serving operator API", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

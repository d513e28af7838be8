// Package server exposes the service facade over a local HTTP API for UI
// front-ends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/byok/internal/catalog"
	"github.com/yourusername/byok/internal/provider"
	"github.com/yourusername/byok/internal/service"
	"github.com/yourusername/byok/internal/verify"
)

// KeyHeader carries a provider key on requests without a JSON body.
const KeyHeader = "X-Provider-Key"

const maxBodyBytes = 1 << 20

// Backend is the facade surface the server exposes. *service.Service
// satisfies it.
type Backend interface {
	Providers() []service.ProviderInfo
	ValidateAPIKey(ctx context.Context, p provider.ID, key string) bool
	ValidateAPIKeys(ctx context.Context, keys map[provider.ID]string) map[provider.ID]bool
	VerifyModelAvailability(ctx context.Context, p provider.ID, key, model string) verify.Result
	GetStoredVerificationStatus(ctx context.Context, p provider.ID, key, model string) (verify.Result, bool)
	CallAPI(ctx context.Context, p provider.ID, params provider.CallParams) (*provider.CallResult, error)
	RefreshUserModels(ctx context.Context, p provider.ID, key string) ([]provider.ModelVariant, error)
	FetchAvailableModels(ctx context.Context, p provider.ID, key string) ([]provider.ModelVariant, error)
	RefreshAllModelsFromProxy(ctx context.Context, force bool) (map[provider.ID]int, error)
}

// Options configure a Server.
type Options struct {
	Addr    string
	Version string
	Logger  zerolog.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string
}

// Server is the HTTP API server
type Server struct {
	backend Backend
	opts    Options
	mux     *http.ServeMux
	server  *http.Server
}

// New creates a new API server
func New(backend Backend, opts Options) *Server {
	s := &Server{
		backend: backend,
		opts:    opts,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the server's root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.logMiddleware(s.corsMiddleware(s.mux))
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	addr := s.opts.Addr
	if addr == "" {
		addr = "localhost:4097"
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.opts.Logger.Info().Str("addr", "http://"+addr).Msg("byok API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /providers", s.handleProviders)

	s.mux.HandleFunc("POST /keys/validate", s.handleValidateKeys)

	s.mux.HandleFunc("POST /models/verify", s.handleVerifyModel)
	s.mux.HandleFunc("GET /models/status", s.handleModelStatus)
	s.mux.HandleFunc("POST /models/refresh", s.handleRefreshModels)
	s.mux.HandleFunc("GET /models", s.handleListModels)

	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("POST /proxy/refresh", s.handleProxyRefresh)

	if s.opts.Metrics != nil {
		s.mux.Handle("GET /metrics", s.opts.Metrics)
	}
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.opts.CORSOrigins) > 0 {
			origin = ""
			for _, o := range s.opts.CORSOrigins {
				if o == r.Header.Get("Origin") {
					origin = o
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+KeyHeader)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logMiddleware logs method, path and status. Headers and bodies carry keys
// and are never logged.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if r.URL.Query().Has("key") {
			writeError(rec, http.StatusBadRequest, "keys must be sent in the body or the "+KeyHeader+" header")
		} else {
			next.ServeHTTP(rec, r)
		}

		s.opts.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "version": s.opts.Version})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.backend.Providers())
}

type keyRequest struct {
	Provider provider.ID `json:"provider"`
	Key      string      `json:"key"`
	Model    string      `json:"model,omitempty"`
}

func (s *Server) handleValidateKeys(w http.ResponseWriter, r *http.Request) {
	var req struct {
		keyRequest
		Keys map[provider.ID]string `json:"keys"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if len(req.Keys) > 0 {
		writeJSON(w, map[string]any{"results": s.backend.ValidateAPIKeys(r.Context(), req.Keys)})
		return
	}

	key := keyFrom(r, req.Key)
	if req.Provider == "" || key == "" {
		writeError(w, http.StatusBadRequest, "provider and key are required")
		return
	}
	writeJSON(w, map[string]any{
		"provider": req.Provider,
		"valid":    s.backend.ValidateAPIKey(r.Context(), req.Provider, key),
	})
}

func (s *Server) handleVerifyModel(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	key := keyFrom(r, req.Key)
	if req.Provider == "" || req.Model == "" || key == "" {
		writeError(w, http.StatusBadRequest, "provider, model and key are required")
		return
	}
	result := s.backend.VerifyModelAvailability(r.Context(), req.Provider, key, req.Model)
	writeJSON(w, map[string]any{"provider": req.Provider, "model": req.Model, "result": result})
}

func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	p := provider.ID(r.URL.Query().Get("provider"))
	model := r.URL.Query().Get("model")
	key := keyFrom(r, "")
	if p == "" || key == "" {
		writeError(w, http.StatusBadRequest, "provider query parameter and "+KeyHeader+" header are required")
		return
	}
	result, ok := s.backend.GetStoredVerificationStatus(r.Context(), p, key, model)
	resp := map[string]any{"provider": p, "model": model, "cached": ok}
	if ok {
		resp["result"] = result
	}
	writeJSON(w, resp)
}

func (s *Server) handleRefreshModels(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	key := keyFrom(r, req.Key)
	if req.Provider == "" || key == "" {
		writeError(w, http.StatusBadRequest, "provider and key are required")
		return
	}
	models, err := s.backend.RefreshUserModels(r.Context(), req.Provider, key)
	if err != nil {
		writeFailure(w, req.Provider, err)
		return
	}
	writeJSON(w, map[string]any{"provider": req.Provider, "refreshed": models != nil, "models": models})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	p := provider.ID(r.URL.Query().Get("provider"))
	if p == "" {
		writeError(w, http.StatusBadRequest, "provider query parameter is required")
		return
	}
	models, err := s.backend.FetchAvailableModels(r.Context(), p, keyFrom(r, ""))
	if err != nil {
		writeFailure(w, p, err)
		return
	}
	writeJSON(w, map[string]any{"provider": p, "models": models})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider provider.ID `json:"provider"`
		Key      string      `json:"key"`
		provider.CallParams
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	params := req.CallParams
	params.Key = keyFrom(r, req.Key)

	result, err := s.backend.CallAPI(r.Context(), req.Provider, params)
	if err != nil {
		writeFailure(w, req.Provider, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleProxyRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Force bool `json:"force"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	counts, err := s.backend.RefreshAllModelsFromProxy(r.Context(), req.Force)
	if err != nil {
		writeFailure(w, "", err)
		return
	}
	writeJSON(w, map[string]any{"providers": counts})
}

// keyFrom prefers the body key over the header.
func keyFrom(r *http.Request, bodyKey string) string {
	if k := strings.TrimSpace(bodyKey); k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get(KeyHeader))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// failureStatus maps facade errors onto HTTP statuses. Vendor client errors
// pass through; vendor server errors become 502.
func failureStatus(err error) int {
	switch {
	case errors.Is(err, provider.ErrUnsupportedProvider),
		errors.Is(err, service.ErrMissingKey),
		errors.Is(err, service.ErrNoMessages):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrProxyNotConfigured):
		return http.StatusServiceUnavailable
	case provider.IsTimeout(err):
		return http.StatusGatewayTimeout
	}
	if status := provider.StatusCode(err); status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}

func writeFailure(w http.ResponseWriter, p provider.ID, err error) {
	status := failureStatus(err)
	msg := err.Error()
	if p != "" && status != http.StatusBadRequest {
		msg = provider.MakeUserFriendly(err, p).Error()
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Package server exposes the dispatch pipeline over HTTP: activation,
// registry reload, and agent listing.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/taskfleet/dispatch/pkg/dispatch"
	"github.com/taskfleet/dispatch/pkg/logger"
	"github.com/taskfleet/dispatch/pkg/registry"
)

// DefaultBudget is the global token budget applied when an activation
// request omits one.
const DefaultBudget = 4096

// Config holds the server configuration.
type Config struct {
	Host string
	Port int
}

// Validate checks the server configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server serves the dispatch HTTP API.
type Server struct {
	router     *mux.Router
	store      *registry.Store
	dispatcher *dispatch.Dispatcher
	config     *Config
	httpServer *http.Server
}

// New creates a server around an existing store and dispatcher.
func New(config *Config, store *registry.Store, dispatcher *dispatch.Dispatcher) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:     mux.NewRouter(),
		store:      store,
		dispatcher: dispatcher,
		config:     config,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/activate", s.handleActivate).Methods("POST")
	api.HandleFunc("/reload", s.handleReload).Methods("POST")
	api.HandleFunc("/agents", s.handleListAgents).Methods("GET")
	api.HandleFunc("/agents/{id}", s.handleGetAgent).Methods("GET")

	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

// activateRequest is the body of POST /api/activate.
type activateRequest struct {
	Invocation string `json:"invocation,omitempty"`
	Text       string `json:"text"`
	Budget     int    `json:"budget,omitempty"`
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Budget <= 0 {
		req.Budget = DefaultBudget
	}

	result := s.dispatcher.Activate(r.Context(), req.Invocation, req.Text, req.Budget)
	s.writeJSONResponse(w, result)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reload(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if registry.IsMalformedDefinition(err) {
			// The previous registry stays active; tell the operator why the
			// new content was rejected.
			status = http.StatusConflict
		}
		s.writeErrorResponse(w, status, "reload failed, previous registry remains active", err)
		return
	}

	s.writeJSONResponse(w, map[string]any{
		"status": "reloaded",
		"count":  s.store.Current().Len(),
	})
}

// agentSummary is the wire form of a definition, body excluded.
type agentSummary struct {
	ID           string   `json:"id"`
	Tier         string   `json:"tier"`
	Module       string   `json:"module,omitempty"`
	Triggers     []string `json:"triggers,omitempty"`
	AutoActivate bool     `json:"auto_activate"`
	Tools        []string `json:"tools,omitempty"`
	MaxTokens    int      `json:"max_tokens"`
	Warnings     []string `json:"warnings,omitempty"`
}

func summarize(def *registry.Definition) agentSummary {
	return agentSummary{
		ID:           def.ID,
		Tier:         def.Tier,
		Module:       def.Module,
		Triggers:     def.Triggers,
		AutoActivate: def.AutoActivate,
		Tools:        def.Tools,
		MaxTokens:    def.MaxTokens,
		Warnings:     def.Warnings,
	}
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	reg := s.store.Current()

	agents := make([]agentSummary, 0, reg.Len())
	for _, def := range reg.All() {
		agents = append(agents, summarize(def))
	}

	s.writeJSONResponse(w, map[string]any{"agents": agents})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	def, ok := s.store.Current().Lookup(id)
	if !ok {
		s.writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("agent %q not found", id), nil)
		return
	}

	s.writeJSONResponse(w, summarize(def))
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		entry := logger.G(r.Context()).WithField("request_id", requestID)
		ctx := logger.WithLogger(r.Context(), entry)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(context.TODO()).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{"error": message}
	if err != nil {
		response["detail"] = err.Error()
	}
	_ = json.NewEncoder(w).Encode(response)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until ctx is canceled, then shuts it down.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:    address,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.G(ctx).WithField("address", address).Info("dispatch server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return errors.Wrap(err, "dispatch server failed")
	}
}

// Stop closes the server immediately.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

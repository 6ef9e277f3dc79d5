package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/research-funding-ledger/internal/auth"
	"github.com/sheikh-saqib/research-funding-ledger/internal/ledger"
	"github.com/sheikh-saqib/research-funding-ledger/internal/money"
)

// Server exposes the ledger over HTTP.
// Mutating project routes require a caller token; reads are public.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	ledger     *ledger.Ledger
	verifier   *auth.Verifier
	units      money.Converter
	logger     *zap.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, l *ledger.Ledger, verifier *auth.Verifier, units money.Converter, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:      mux,
		ledger:   l,
		verifier: verifier,
		units:    units,
		logger:   logger,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /projects", s.authenticated(s.handleCreateProject))
	s.mux.HandleFunc("GET /projects", s.handleListProjects)
	s.mux.HandleFunc("GET /projects/{id}", s.handleGetProject)
	s.mux.HandleFunc("POST /projects/{id}/fund", s.authenticated(s.handleFundProject))
	s.mux.HandleFunc("POST /projects/{id}/withdraw", s.authenticated(s.handleWithdraw))
	s.mux.HandleFunc("POST /projects/{id}/close", s.authenticated(s.handleCloseProject))
	s.mux.HandleFunc("GET /projects/{id}/balance", s.handleProjectBalance)
	s.mux.HandleFunc("GET /projects/{id}/contributions", s.handleListContributions)
	s.mux.HandleFunc("GET /projects/{id}/contributions/{funder}", s.handleGetContribution)
	s.mux.HandleFunc("GET /funders/{identity}/contributions", s.handleListFunderContributions)

	s.mux.HandleFunc("POST /accounts/{identity}/deposits", s.authenticated(s.handleDeposit))
	s.mux.HandleFunc("GET /accounts/{identity}/balance", s.handleBalance)
}

// Handler returns the routed handler, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("API server starting", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}

type callerKey struct{}

// authenticated verifies the bearer token and stores the caller identity on
// the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			token = ""
		}

		caller, err := s.verifier.Verify(token)
		if err != nil {
			s.sendError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	}
}

func callerFrom(r *http.Request) string {
	caller, _ := r.Context().Value(callerKey{}).(string)
	return caller
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, errorResponse{Code: code, Message: message})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

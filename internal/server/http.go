// Package server exposes the question-answering service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmaier/corpusqa/internal/retrieval"
	"github.com/dmaier/corpusqa/internal/service"
)

const (
	defaultAskTopK    = 10
	defaultSearchTopK = 5
	sourcePreviewLen  = 200
)

// HTTPServer wraps the HTTP server and its router.
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	qa     *service.QAService
	logger *slog.Logger
	askK   int
}

// HTTPServerConfig holds configuration for the HTTP server.
type HTTPServerConfig struct {
	Port        int
	DefaultTopK int // default top_k for /ask, falls back to 10
	Logger      *slog.Logger
}

// NewHTTPServer creates the HTTP server and registers all routes.
func NewHTTPServer(qa *service.QAService, cfg HTTPServerConfig) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	askK := cfg.DefaultTopK
	if askK <= 0 {
		askK = defaultAskTopK
	}

	s := &HTTPServer{
		qa:     qa,
		logger: logger,
		askK:   askK,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)

	router.Post("/ask", s.handleAsk)
	router.Post("/search", s.handleSearch)
	router.Get("/health", s.handleHealth)

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // LLM generation can be slow
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Router returns the underlying chi router, mainly for tests.
func (s *HTTPServer) Router() *chi.Mux {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

type askRequest struct {
	Question     string `json:"question"`
	TopK         *int   `json:"top_k"`
	UseExpansion *bool  `json:"use_expansion"`
	UseReranker  *bool  `json:"use_reranker"`
}

type sourceView struct {
	ID            int      `json:"id"`
	Preview       string   `json:"preview"`
	Source        string   `json:"source,omitempty"`
	SemanticScore float64  `json:"semantic_score"`
	KeywordScore  float64  `json:"keyword_score"`
	RerankScore   *float64 `json:"rerank_score,omitempty"`
}

type askSettings struct {
	TopK         int  `json:"top_k"`
	UseExpansion bool `json:"use_expansion"`
	UseReranker  bool `json:"use_reranker"`
}

type askResponse struct {
	Question        string       `json:"question"`
	Answer          string       `json:"answer"`
	ExpandedQueries []string     `json:"expanded_queries"`
	Sources         []sourceView `json:"sources"`
	Settings        askSettings  `json:"settings"`
}

type searchResponse struct {
	Query           string                `json:"query"`
	ExpandedQueries []string              `json:"expanded_queries"`
	Results         []retrieval.Candidate `json:"results"`
}

// options applies the request's toggles over the defaults: expansion and
// reranking are on unless explicitly disabled.
func (r askRequest) options(defaultTopK int) retrieval.Options {
	opts := retrieval.Options{
		TopK:         defaultTopK,
		UseExpansion: true,
		UseReranker:  true,
	}
	if r.TopK != nil {
		opts.TopK = *r.TopK
	}
	if r.UseExpansion != nil {
		opts.UseExpansion = *r.UseExpansion
	}
	if r.UseReranker != nil {
		opts.UseReranker = *r.UseReranker
	}
	return opts
}

func (s *HTTPServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	opts := req.options(s.askK)
	answer, err := s.qa.Ask(r.Context(), req.Question, opts)
	if err != nil {
		s.writeRetrievalError(w, err)
		return
	}

	resp := askResponse{
		Question:        answer.Question,
		Answer:          answer.Answer,
		ExpandedQueries: answer.ExpandedQueries,
		Sources:         make([]sourceView, 0, len(answer.Sources)),
		Settings: askSettings{
			TopK:         opts.TopK,
			UseExpansion: opts.UseExpansion,
			UseReranker:  opts.UseReranker,
		},
	}
	for _, c := range answer.Sources {
		resp.Sources = append(resp.Sources, sourceView{
			ID:            c.ID,
			Preview:       preview(c.Text, sourcePreviewLen),
			Source:        c.Source,
			SemanticScore: c.SemanticScore,
			KeywordScore:  c.KeywordScore,
			RerankScore:   c.RerankScore,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.qa.Retrieve(r.Context(), req.Question, req.options(defaultSearchTopK))
	if err != nil {
		s.writeRetrievalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:           req.Question,
		ExpandedQueries: result.ExpandedQueries,
		Results:         result.Candidates,
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.qa.Health())
}

func (s *HTTPServer) writeRetrievalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retrieval.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, retrieval.ErrScoringUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// preview truncates text to at most n runes for the /ask sources list.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// requestLoggingMiddleware logs HTTP requests.
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

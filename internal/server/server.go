// Package server exposes recipe rendering and linting over HTTP, so CI
// jobs can check recipes without a local recipeforge install.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"recipeforge/pkg/buildinfo"
	"recipeforge/pkg/errors"
	"recipeforge/pkg/recipe"
	"recipeforge/pkg/rendertmpl"
)

const maxBodyBytes = 1 << 20 // recipes are small; reject anything bigger

// Server serves the recipe API.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New creates a Server listening on addr.
func New(addr string, logger *log.Logger) *Server {
	s := &Server{logger: logger}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start runs the server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/render", s.handleRender)
		r.Post("/lint", s.handleLint)
	})
	return r
}

// renderRequest is the body of POST /api/render and /api/lint.
// Variables stand in for the build environment (GIT_DESCRIBE_TAG,
// CONDA_PY and friends); unset templated variables fail the render.
// Strict only applies to lint, where it also rejects unknown keys.
type renderRequest struct {
	Recipe    string            `json:"recipe"`
	Variables map[string]string `json:"variables"`
	Strict    bool              `json:"strict,omitempty"`
}

type renderResponse struct {
	ID       string `json:"id"`
	Rendered string `json:"rendered"`
}

type lintResponse struct {
	ID     string         `json:"id"`
	OK     bool           `json:"ok"`
	Issues []recipe.Issue `json:"issues"`
}

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRender(w, r)
	if !ok {
		return
	}

	rendered, err := rendertmpl.Render(req.Recipe, rendertmpl.MapEnv(req.Variables))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if _, err := recipe.Parse([]byte(rendered)); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, renderResponse{
		ID:       uuid.NewString(),
		Rendered: rendered,
	})
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRender(w, r)
	if !ok {
		return
	}

	rendered, err := rendertmpl.Render(req.Recipe, rendertmpl.MapEnv(req.Variables))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	rec, err := recipe.Parse([]byte(rendered))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	issues := recipe.Lint(rec)
	if req.Strict {
		issues = append(issues, recipe.StrictIssues([]byte(rendered))...)
	}
	resp := lintResponse{
		ID:     uuid.NewString(),
		OK:     !recipe.HasErrors(issues),
		Issues: issues,
	}
	if resp.Issues == nil {
		resp.Issues = []recipe.Issue{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeRender(w http.ResponseWriter, r *http.Request) (renderRequest, bool) {
	var req renderRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return req, false
	}
	if req.Recipe == "" {
		s.writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "recipe must not be empty"))
		return req, false
	}
	return req, true
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Debug("request failed", "status", status, "error", err)
	writeJSON(w, status, errorResponse{
		Code:    errors.GetCode(err),
		Message: errors.UserMessage(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // headers already sent
}

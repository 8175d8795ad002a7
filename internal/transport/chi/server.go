// Package chi exposes the retrieval engine over JSON HTTP.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/request"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/response"
	"github.com/kailas-cloud/ragsearch/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/ragsearch/internal/usecase/health"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Engine is the consumer interface for the retrieval engine (ISP).
type Engine interface {
	Execute(ctx context.Context, req *request.Request) response.Response
	AddVector(ctx context.Context, text string, metadata map[string]any) (string, error)
	RemoveVector(ctx context.Context, id string) error
	ClearVectors(ctx context.Context)
	Stats() engine.Stats
}

// HealthChecker runs the aggregated health check.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	engine        Engine
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(eng Engine, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		engine:        eng,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := request.New(body.Query, mode.Mode(body.Mode), body.TopK, body.Alpha)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := s.engine.Execute(r.Context(), &req)
	if resp.IsDegraded() {
		s.handleDomainError(w, r, resp.Cause)
		return
	}

	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = searchResultToDTO(&resp.Results[i])
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Results: items,
		Status:  string(resp.Status),
		Mode:    string(req.Mode()),
	})
}

// AddVector handles POST /vectors.
func (s *Server) AddVector(w http.ResponseWriter, r *http.Request) {
	var body AddVectorRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Text == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text is required")
		return
	}

	id, err := s.engine.AddVector(r.Context(), body.Text, body.Metadata)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddVectorResponse{ID: id})
}

// DeleteVector handles DELETE /vectors/{id}.
func (s *Server) DeleteVector(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveVector(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearVectors handles DELETE /vectors.
func (s *Server) ClearVectors(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearVectors(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

// HealthCheck handles GET /health. Degraded dependencies still return 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

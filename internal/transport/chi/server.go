package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain/order"
	healthuc "github.com/kailas-cloud/searchgate/internal/usecase/health"
)

// QueryRunner forwards a query document to the search backend.
type QueryRunner interface {
	Run(ctx context.Context, q json.RawMessage) ([]order.Row, error)
}

// ReadinessChecker reports backend readiness.
type ReadinessChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errEmptyBody signals a query request without a body.
var errEmptyBody = errors.New("request body is empty, expected a JSON query document")

// Server holds the HTTP handlers.
type Server struct {
	query   QueryRunner
	health  ReadinessChecker
	logger  *zap.Logger
	metrics http.Handler
}

// NewServer creates an HTTP API server.
func NewServer(query QueryRunner, health ReadinessChecker, logger *zap.Logger) *Server {
	return &Server{query: query, health: health, logger: logger, metrics: promhttp.Handler()}
}

// Query handles GET /query. The body is forwarded to the backend without validation
// beyond being well-formed JSON.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	q, err := readQuery(r)
	if err != nil {
		s.logger.Debug("unreadable query body", zap.Error(err))
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	s.run(w, r, q)
}

// FirstName handles GET /first-names/{name}: orders whose customer first name matches name.
func (s *Server) FirstName(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid name: "+err.Error())
		return
	}
	s.run(w, r, firstNameQuery(name))
}

// run executes q and writes rows or the failure text. The use case logs failures.
func (s *Server) run(w http.ResponseWriter, r *http.Request, q json.RawMessage) {
	rows, err := s.query.Run(r.Context(), q)
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	if rows == nil {
		rows = []order.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type matchQuery struct {
	Query struct {
		Match struct {
			CustomerFirstName string `json:"customer_first_name"`
		} `json:"match"`
	} `json:"query"`
}

// firstNameQuery builds {"query":{"match":{"customer_first_name":name}}}.
func firstNameQuery(name string) json.RawMessage {
	var q matchQuery
	q.Query.Match.CustomerFirstName = name
	data, _ := json.Marshal(q) // plain string fields cannot fail to encode
	return data
}

// HealthCheck handles GET /health_check: process liveness only, never touches the backend.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Ready handles GET /ready.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

func readQuery(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("read request body: " + err.Error())
	}
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	if !json.Valid(body) {
		return nil, errors.New("request body is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

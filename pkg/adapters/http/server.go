package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/messagemind/automaton"
	"github.com/messagemind/automaton/internal/logging"
	"github.com/messagemind/automaton/internal/presentation/graph"
	"github.com/messagemind/automaton/internal/validator"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/ports"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 16 << 10

// Automations is the CRUD surface served under /automations.
type Automations interface {
	Create(ctx context.Context, in automaton.CreateInput) (*domain.Graph, error)
	List(ctx context.Context) ([]*domain.Graph, error)
	Get(ctx context.Context, id string) (*domain.Graph, error)
	Update(ctx context.Context, id string, patch domain.GraphPatch) (*domain.Graph, error)
	Delete(ctx context.Context, id string) error
}

// Runner starts automation runs in the background.
type Runner interface {
	Start(ctx context.Context, graphID, email string) (string, error)
}

// Metrics records served requests and exposes the scrape endpoint.
type Metrics interface {
	ObserveRequest(method string, status int)
	Handler() http.Handler
}

// Server serves the automation API.
type Server struct {
	automations Automations
	runner      Runner
	notifier    ports.MessageSender
	metrics     Metrics
	logger      *slog.Logger
	corsOrigin  string
	apiVersion  string
	now         func() time.Time
	startedAt   time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		s.corsOrigin = origin
	}
}

// WithAPIVersion sets the version segment of the /api/{version} prefix.
func WithAPIVersion(version string) Option {
	return func(s *Server) {
		s.apiVersion = version
	}
}

// WithNotifier sends the confirmation message of test runs.
func WithNotifier(sender ports.MessageSender) Option {
	return func(s *Server) {
		s.notifier = sender
	}
}

// WithMetrics enables request metrics and mounts GET /metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock replaces time.Now, which drives the reported uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewHandler creates the HTTP handler for the automation API.
func NewHandler(automations Automations, runner Runner, opts ...Option) http.Handler {
	s := &Server{
		automations: automations,
		runner:      runner,
		logger:      logging.NewNop(),
		corsOrigin:  "*",
		apiVersion:  "v1",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(limitBody)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/"+s.apiVersion, func(r chi.Router) {
		r.Get("/health", s.Health)
		r.Route("/automations", func(r chi.Router) {
			r.Post("/", s.CreateAutomation)
			r.Get("/", s.ListAutomations)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetAutomation)
				r.Put("/", s.UpdateAutomation)
				r.Delete("/", s.DeleteAutomation)
				r.Post("/test", s.TestAutomation)
				r.Get("/validate", s.ValidateAutomation)
				r.Get("/mermaid", s.AutomationMermaid)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path))
	})

	return enableCORS(s.corsOrigin, r)
}

func enableCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if origin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if s.metrics != nil {
				s.metrics.ObserveRequest(r.Method, status)
			}
			s.logger.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", s.now().Sub(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// automationResponse exposes the id twice: "_id" is what existing editor clients read.
type automationResponse struct {
	LegacyID string `json:"_id"`
	*domain.Graph
}

func present(g *domain.Graph) automationResponse {
	return automationResponse{LegacyID: g.ID, Graph: g}
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type healthData struct {
	Status       string `json:"status"`
	Uptime       int64  `json:"uptime"`
	UptimeString string `json:"uptimeString"`
}

type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// Health reports liveness and process uptime.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	uptime := s.now().Sub(s.startedAt)
	writeJSON(w, http.StatusOK, apiResponse{
		StatusCode: http.StatusOK,
		Data: healthData{
			Status:       "OK",
			Uptime:       int64(uptime / time.Second),
			UptimeString: FormatUptime(uptime),
		},
		Message: "Health check passed",
		Success: true,
	})
}

// FormatUptime renders d as "1d 2h 3m 4s", skipping zero parts.
// Seconds are always shown when every other part is zero.
func FormatUptime(d time.Duration) string {
	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

func (s *Server) CreateAutomation(w http.ResponseWriter, r *http.Request) {
	var body automaton.CreateInput
	if !s.decode(w, r, &body) {
		return
	}
	g, err := s.automations.Create(r.Context(), body)
	if err != nil {
		s.fail(w, r, "create automation", err)
		return
	}
	writeJSON(w, http.StatusCreated, present(g))
}

func (s *Server) ListAutomations(w http.ResponseWriter, r *http.Request) {
	all, err := s.automations.List(r.Context())
	if err != nil {
		s.fail(w, r, "list automations", err)
		return
	}
	out := make([]automationResponse, 0, len(all))
	for _, g := range all {
		out = append(out, present(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetAutomation(w http.ResponseWriter, r *http.Request) {
	g, err := s.automations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "get automation", err)
		return
	}
	writeJSON(w, http.StatusOK, present(g))
}

func (s *Server) UpdateAutomation(w http.ResponseWriter, r *http.Request) {
	var patch domain.GraphPatch
	if !s.decode(w, r, &patch) {
		return
	}
	g, err := s.automations.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, "update automation", err)
		return
	}
	writeJSON(w, http.StatusOK, present(g))
}

func (s *Server) DeleteAutomation(w http.ResponseWriter, r *http.Request) {
	if err := s.automations.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "delete automation", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Automation deleted successfully"})
}

type testRequest struct {
	Email string `json:"email"`
}

// TestAutomation starts a run for the given address and returns without waiting for it.
func (s *Server) TestAutomation(w http.ResponseWriter, r *http.Request) {
	var body testRequest
	if !s.decode(w, r, &body) {
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	id := chi.URLParam(r, "id")
	runID, err := s.runner.Start(r.Context(), id, email)
	if err != nil {
		s.fail(w, r, "start test run", err)
		return
	}

	if s.notifier != nil {
		err := s.notifier.Send(r.Context(), domain.Message{
			To:      email,
			Subject: "Test Automation",
			Text:    "Test automation has been started",
		})
		if err != nil {
			s.logger.Error("test run confirmation failed", "run_id", runID, "error", err)
		}
	}

	w.Header().Set("X-Run-Id", runID)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Test run started in background"})
}

func (s *Server) ValidateAutomation(w http.ResponseWriter, r *http.Request) {
	g, err := s.automations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "validate automation", err)
		return
	}
	report := validator.ValidateGraph(g)
	writeJSON(w, http.StatusOK, struct {
		Valid bool `json:"valid"`
		*validator.Report
	}{report.Valid(), report})
}

func (s *Server) AutomationMermaid(w http.ResponseWriter, r *http.Request) {
	g, err := s.automations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "render automation", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(g, nil)))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
	return false
}

// fail maps domain errors onto status codes. Unexpected errors are logged and hidden.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrGraphNotFound):
		writeError(w, http.StatusNotFound, "Automation not found")
	case errors.Is(err, domain.ErrDuplicateName), errors.Is(err, domain.ErrInvalidGraph):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, automaton.ErrEngineClosed):
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
	default:
		s.logger.Error(op+" failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message, Errors: []string{}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Package api provides the HTTP server for contentplan.
//
// It exposes RESTful endpoints for wizard sessions, requirement analysis,
// plan generation and confirmation, publish schedules, and end-to-end
// workflow runs.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongliu-studio/contentplan/internal/calendar"
	"github.com/hongliu-studio/contentplan/internal/planning"
	"github.com/hongliu-studio/contentplan/internal/production"
	"github.com/hongliu-studio/contentplan/internal/requirement"
	"github.com/hongliu-studio/contentplan/internal/wizard"
	"github.com/hongliu-studio/contentplan/internal/workflow"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the core services into HTTP handlers.
type Server struct {
	addr         string
	sessions     *wizard.Sessions
	requirements *requirement.Service
	plans        *planning.Service
	producer     *production.Producer
	calendar     *calendar.Service
	engine       *workflow.Engine
	steps        workflow.Steps

	httpServer *http.Server
}

// NewServer creates an API server over the given services.
func NewServer(sessions *wizard.Sessions, requirements *requirement.Service, plans *planning.Service, producer *production.Producer, cal *calendar.Service, engine *workflow.Engine, steps workflow.Steps, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		addr:         cfg.Addr,
		sessions:     sessions,
		requirements: requirements,
		plans:        plans,
		producer:     producer,
		calendar:     cal,
		engine:       engine,
		steps:        steps,
	}
}

// Handler returns the route table as an http.Handler, for serving and tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /wizard/sessions", s.startSessionHandler)
	mux.HandleFunc("GET /wizard/sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("POST /wizard/sessions/{id}/answer", s.answerSessionHandler)
	mux.HandleFunc("POST /wizard/sessions/{id}/skip", s.skipSessionHandler)
	mux.HandleFunc("POST /wizard/sessions/{id}/previous", s.previousSessionHandler)
	mux.HandleFunc("POST /wizard/sessions/{id}/complete", s.completeSessionHandler)
	mux.HandleFunc("DELETE /wizard/sessions/{id}", s.deleteSessionHandler)

	mux.HandleFunc("POST /requirements/analyze", s.analyzeHandler)
	mux.HandleFunc("GET /requirements", s.listRequirementsHandler)
	mux.HandleFunc("GET /requirements/{id}", s.getRequirementHandler)
	mux.HandleFunc("DELETE /requirements/{id}", s.deleteRequirementHandler)

	mux.HandleFunc("POST /plans/generate", s.generatePlanHandler)
	mux.HandleFunc("GET /plans", s.listPlansHandler)
	mux.HandleFunc("GET /plans/{id}", s.getPlanHandler)
	mux.HandleFunc("POST /plans/{id}/confirm", s.confirmPlanHandler)
	mux.HandleFunc("DELETE /plans/{id}", s.deletePlanHandler)
	mux.HandleFunc("POST /plans/{id}/produce", s.producePlanHandler)
	mux.HandleFunc("GET /plans/{id}/progress", s.productionProgressHandler)
	mux.HandleFunc("POST /plans/{id}/schedules", s.createSchedulesHandler)

	mux.HandleFunc("GET /schedules", s.listSchedulesHandler)
	mux.HandleFunc("GET /schedules/{id}", s.getScheduleHandler)
	mux.HandleFunc("PUT /schedules/{id}", s.updateScheduleHandler)
	mux.HandleFunc("DELETE /schedules/{id}", s.deleteScheduleHandler)
	mux.HandleFunc("GET /calendar", s.calendarHandler)

	mux.HandleFunc("POST /workflows/requirement-to-publish", s.runWorkflowHandler)

	return mux
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Server.Run: contentplan API listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

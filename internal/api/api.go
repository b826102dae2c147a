// Package api exposes the progression engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-tutor/internal/attempt"
	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/gating"
	"github.com/p-n-ai/pai-tutor/internal/platform/metrics"
	"github.com/p-n-ai/pai-tutor/internal/ratelimit"
	"github.com/p-n-ai/pai-tutor/internal/recommend"
)

const (
	defaultHistoryLimit  = 50
	maxHistoryLimit      = 500
	defaultFrontierCount = 3
	maxBodyBytes         = 1 << 20
	readyTimeout         = 2 * time.Second
)

// ReadyCheck is one dependency probed by /readyz.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config holds the collaborators served by the API.
type Config struct {
	Graph    *curriculum.Graph
	Recorder *attempt.Recorder
	Store    attempt.Store     // read side for gating and recommendations
	Limiter  ratelimit.Limiter // default: unlimited
	Metrics  *metrics.Metrics  // optional; enables /metrics
	Hub      *Hub              // optional; enables the live feed
	Checks   []ReadyCheck
}

// Server holds the HTTP handlers.
type Server struct {
	graph     *curriculum.Graph
	recorder  *attempt.Recorder
	gating    *gating.Engine
	recommend *recommend.Engine
	limiter   ratelimit.Limiter
	metrics   *metrics.Metrics
	hub       *Hub
	checks    []ReadyCheck
	validator *payloadValidator
}

// New creates the API server.
func New(cfg Config) *Server {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	g := gating.NewEngine(cfg.Graph, cfg.Store)
	return &Server{
		graph:     cfg.Graph,
		recorder:  cfg.Recorder,
		gating:    g,
		recommend: recommend.NewEngine(g),
		limiter:   limiter,
		metrics:   cfg.Metrics,
		hub:       cfg.Hub,
		checks:    cfg.Checks,
		validator: newPayloadValidator(),
	}
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/subtopics", s.handleSubtopics)
	mux.HandleFunc("POST /v1/users/{userID}/attempts", s.handleSubmit)
	mux.HandleFunc("GET /v1/users/{userID}/attempts", s.handleHistory)
	mux.HandleFunc("GET /v1/users/{userID}/attempts/{attemptID}", s.handleAttempt)
	mux.HandleFunc("GET /v1/users/{userID}/progress", s.handleProgress)
	mux.HandleFunc("GET /v1/users/{userID}/subtopics/{subtopicID}", s.handleSubtopicState)
	mux.HandleFunc("GET /v1/users/{userID}/recommendation", s.handleRecommendation)
	mux.HandleFunc("GET /v1/users/{userID}/frontier", s.handleFrontier)
	mux.HandleFunc("GET /v1/users/{userID}/report.xlsx", s.handleReport)
	if s.hub != nil {
		mux.HandleFunc("GET /v1/users/{userID}/live", s.handleLive)
	}

	return s.instrument(mux)
}

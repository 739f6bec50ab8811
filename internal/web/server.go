package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/edvart/arena-inhouse/internal/engine"
	"github.com/edvart/arena-inhouse/internal/metrics"
	"github.com/edvart/arena-inhouse/internal/push"
	"github.com/edvart/arena-inhouse/internal/store"
)

// Server holds the HTTP API and its dependencies.
type Server struct {
	router     *chi.Mux
	engine     *engine.Engine
	store      store.Store
	push       *push.Service
	metrics    *metrics.Metrics
	sse        *SSEHub
	adminToken string
	log        *logrus.Logger
}

// Config holds server configuration.
type Config struct {
	AdminToken   string
	AllowOrigins []string
}

// NewServer creates the HTTP API. pushSvc may be nil when web push is
// not configured.
func NewServer(eng *engine.Engine, st store.Store, pushSvc *push.Service, m *metrics.Metrics, log *logrus.Logger, cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		engine:     eng,
		store:      st,
		push:       pushSvc,
		metrics:    m,
		sse:        NewSSEHub(log, m),
		adminToken: cfg.AdminToken,
		log:        log,
	}
	s.setupRoutes(cfg.AllowOrigins)
	return s
}

func (s *Server) setupRoutes(allowOrigins []string) {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// SSE endpoint
	r.Get("/events", s.handleSSE)

	r.Post("/users/upsert", s.handleUpsertUser)
	r.Get("/users", s.handleListUsers)
	r.Get("/users/{userID}/profile", s.handleProfile)
	r.Post("/seed/test-bots", s.handleSeedBots)

	r.Post("/queue/enter", s.handleQueueEnter)
	r.Post("/queue/leave", s.handleQueueLeave)
	r.Get("/queue", s.handleQueueStatus)
	r.Get("/queue/members", s.handleQueueMembers)

	r.Get("/matches", s.handleListMatches)
	r.Get("/match/{matchID}", s.handleGetMatch)
	r.Post("/match/finalize", s.handleFinalize)

	r.Post("/draft/pick", s.handleDraftPick)
	r.Post("/draft/auto_current", s.handleDraftAutoCurrent)

	r.Post("/bets/place", s.handlePlaceBet)
	r.Get("/bets/count", s.handleBetsCount)

	r.Get("/leaderboard", s.handleLeaderboard)

	r.Get("/push/vapid-public-key", s.handleVAPIDPublicKey)
	r.Post("/push/subscribe", s.handlePushSubscribe)
	r.Post("/push/unsubscribe", s.handlePushUnsubscribe)
	r.Post("/push/test", s.handlePushTest)

	// Admin routes (shared token via query param)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdminToken)

		r.Get("/admin/config", s.handleAdminGetConfig)
		r.Post("/admin/config", s.handleAdminSetConfig)
		r.Post("/admin/fix_open_matches", s.handleAdminFixOpenMatches)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartSSE starts the SSE hub goroutine.
func (s *Server) StartSSE(events <-chan engine.Event) {
	go s.sse.Run(events)
}

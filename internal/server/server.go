package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/choreloop/internal/account"
	"github.com/dukerupert/choreloop/internal/archive"
	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/export"
	"github.com/dukerupert/choreloop/internal/handler"
	"github.com/dukerupert/choreloop/internal/middleware"
	"github.com/dukerupert/choreloop/internal/store"
	"github.com/dukerupert/choreloop/internal/task"
	ws "github.com/dukerupert/choreloop/internal/websocket"
)

// Options carries the settings the router needs beyond the database.
type Options struct {
	Issuer       *auth.Issuer
	Exporter     *export.Exporter
	SecureCookie bool
}

type Server struct {
	hub          *ws.Hub
	issuer       *auth.Issuer
	accountH     *handler.AccountHandler
	profileH     *handler.ProfileHandler
	taskH        *handler.TaskHandler
	pointsH      *handler.PointsHandler
	historyH     *handler.HistoryHandler
	shoppingH    *handler.ShoppingHandler
	profileStore *store.ProfileStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	historyStore := store.NewHistoryStore(db)
	profileStore := store.NewProfileStore(db)
	shoppingStore := store.NewShoppingStore(db)

	exporter := opts.Exporter
	if exporter == nil {
		exporter = export.New(export.S3Config{})
	}

	accounts := account.NewService(userStore)
	engine := task.NewEngine(taskStore, logger.With("component", "task"))
	archiver := archive.New(taskStore, historyStore, exporter, logger.With("component", "archive"))
	sessions := handler.NewSessions(accounts, profileStore, hub)

	return &Server{
		hub:          hub,
		issuer:       opts.Issuer,
		accountH:     handler.NewAccountHandler(accounts, sessions, opts.Issuer, opts.SecureCookie, logger.With("component", "account")),
		profileH:     handler.NewProfileHandler(sessions, logger.With("component", "profile")),
		taskH:        handler.NewTaskHandler(engine, sessions, hub, logger.With("component", "task_handler")),
		pointsH:      handler.NewPointsHandler(engine, sessions, logger.With("component", "points")),
		historyH:     handler.NewHistoryHandler(archiver, exporter, hub, logger.With("component", "history")),
		shoppingH:    handler.NewShoppingHandler(shoppingStore, hub, logger.With("component", "shopping")),
		profileStore: profileStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// ProfileStore returns the profile selection store for cleanup tasks.
func (s *Server) ProfileStore() *store.ProfileStore {
	return s.profileStore
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/users", s.rateLimitedHandler(s.accountH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.accountH.Login))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.issuer)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Account
	mux.HandleFunc("POST /api/logout", s.accountH.Logout)
	mux.HandleFunc("GET /api/me", s.accountH.Me)
	mux.HandleFunc("PUT /api/me", s.accountH.UpdateMe)
	mux.HandleFunc("PUT /api/me/sub-users", s.accountH.SetSubUsers)

	// Active profile
	mux.HandleFunc("GET /api/profile", s.profileH.Get)
	mux.HandleFunc("PUT /api/profile", s.profileH.Select)
	mux.HandleFunc("GET /api/profile/options", s.profileH.Options)

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/reset", s.taskH.Reset)
	mux.HandleFunc("POST /api/tasks/reset", s.taskH.ResetAll)

	// Points
	mux.HandleFunc("GET /api/points", s.pointsH.Leaderboard)
	mux.HandleFunc("GET /api/points/{owner}", s.pointsH.ForOwner)

	// History
	mux.HandleFunc("GET /api/history", s.historyH.List)
	mux.HandleFunc("GET /api/history/export-status", s.historyH.ExportStatus)
	mux.HandleFunc("POST /api/history/cycle", s.historyH.StartCycle)
	mux.HandleFunc("PUT /api/history/{id}/note", s.historyH.SetNote)
	mux.HandleFunc("DELETE /api/history/{id}", s.historyH.Delete)

	// Shopping list
	mux.HandleFunc("GET /api/shopping-items", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping-items", s.shoppingH.Create)
	mux.HandleFunc("POST /api/shopping-items/{id}/complete", s.shoppingH.ToggleCompleted)
	mux.HandleFunc("POST /api/shopping-items/{id}/essential", s.shoppingH.ToggleEssential)
	mux.HandleFunc("DELETE /api/shopping-items/completed", s.shoppingH.ClearCompleted)
	mux.HandleFunc("DELETE /api/shopping-items/{id}", s.shoppingH.Delete)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}

package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"webui-dashboard-api/pkg/auth"
	"webui-dashboard-api/pkg/config"
	"webui-dashboard-api/pkg/database"
	"webui-dashboard-api/pkg/handlers"
	"webui-dashboard-api/pkg/logger"
	customMiddleware "webui-dashboard-api/pkg/middleware"
	"webui-dashboard-api/pkg/stats"
	"webui-dashboard-api/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps JSON request bodies of mutating routes.
const maxBodyBytes = 1 << 20

// Dependencies are the long-lived components a router is assembled from.
type Dependencies struct {
	Config   *config.Config
	DB       database.DatabaseInterface
	Identity auth.IdentityProvider
	Logger   *logger.Logger
	Metrics  *customMiddleware.Metrics
	// Now overrides the clock used for "today"; nil means time.Now.
	Now func() time.Time
}

// NewRouter assembles the complete HTTP surface.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = customMiddleware.NewMetrics()
	}
	if deps.Identity == nil {
		deps.Identity = auth.NewProvider(deps.Config)
	}

	router := chi.NewRouter()
	setupMiddleware(router, deps)
	setupRoutes(router, deps)
	return router
}

// Serverless entry state, initialized once per cold start.
var (
	entryOnce    sync.Once
	entryLogger  *logger.Logger
	entryMetrics *customMiddleware.Metrics
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	entryOnce.Do(func() {
		log, err := logger.New(cfg.Environment, cfg.Debug)
		if err != nil {
			log = logger.Nop()
		}
		entryLogger = log
		entryMetrics = customMiddleware.NewMetrics()
	})

	db, err := database.GetDatabase(r.Context(), database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		LocalDBPath: cfg.LocalDBPath,
		PostgresDSN: cfg.PostgresDSN,
	}, entryLogger)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Database connection failed: "+err.Error())
		return
	}

	NewRouter(Dependencies{
		Config:  cfg,
		DB:      db,
		Logger:  entryLogger,
		Metrics: entryMetrics,
	}).ServeHTTP(w, r)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, deps Dependencies) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(deps.Metrics.Middleware)
	router.Use(customMiddleware.RequestLogger(deps.Logger))
	router.Use(customMiddleware.Recovery(deps.Logger, deps.Config.IsDevelopment()))
	router.Use(customMiddleware.CORS(deps.Config))
	router.Use(customMiddleware.RateLimitByIP(deps.Config.RateLimitPerMinute))
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, deps Dependencies) {
	svc := stats.NewService(deps.DB)
	if deps.Now != nil {
		svc = svc.WithClock(deps.Now)
	}

	systemHandler := handlers.NewSystemHandler(svc, deps.Logger)
	statsHandler := handlers.NewStatsHandler(svc, deps.Logger)
	chatsHandler := handlers.NewChatsHandler(svc, deps.Logger)
	feedbacksHandler := handlers.NewFeedbacksHandler(svc, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.Config)
	packagesHandler := handlers.NewPackagesHandler(deps.Config, deps.DB, deps.Logger)

	requireIdentity := customMiddleware.RequireIdentity(deps.Identity, deps.Logger)

	router.Get("/", systemHandler.Root)
	router.Get("/health", systemHandler.Health)
	router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Route("/stats", func(r chi.Router) {
			r.Get("/overview", statsHandler.Overview)
			r.Get("/daily", statsHandler.Daily)
			r.Get("/models", statsHandler.Models)
			r.Get("/workspace-ranking", statsHandler.WorkspaceRanking)
			r.Get("/developer-ranking", statsHandler.DeveloperRanking)
			r.Get("/group-ranking", statsHandler.GroupRanking)
		})

		r.Get("/chats/recent", chatsHandler.Recent)
		r.Get("/feedbacks/summary", feedbacksHandler.Summary)

		r.With(requireIdentity).Get("/auth/me", authHandler.Me)

		r.Route("/packages", func(r chi.Router) {
			r.Get("/", packagesHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(requireIdentity)
				r.Use(customMiddleware.MaxBodySize(maxBodyBytes))

				r.With(customMiddleware.ContentTypeJSON).Post("/", packagesHandler.Create)
				r.Delete("/{id}", packagesHandler.Delete)
				r.With(customMiddleware.ContentTypeJSON).Patch("/{id}/status", packagesHandler.UpdateStatus)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path))
	})
}

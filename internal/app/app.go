// Package app содержит основную структуру приложения и логику инициализации.
// Собирает хранилище, клиент AppTrove, сервисы и HTTP-маршруты в один обработчик.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/apptrove"
	"github.com/InQaaaaGit/edurise.git/internal/buildinfo"
	"github.com/InQaaaaGit/edurise.git/internal/config"
	"github.com/InQaaaaGit/edurise.git/internal/handler"
	"github.com/InQaaaaGit/edurise.git/internal/metrics"
	"github.com/InQaaaaGit/edurise.git/internal/middleware"
	"github.com/InQaaaaGit/edurise.git/internal/service"
	"github.com/InQaaaaGit/edurise.git/internal/storage"
)

// App представляет основное приложение партнерского сервиса.
// Инкапсулирует конфигурацию, HTTP роутер, логгер и обработчики запросов.
type App struct {
	config   *config.Config
	router   *chi.Mux
	logger   *zap.Logger
	handler  *handler.Handler
	sessions *middleware.Sessions
	metrics  *metrics.Collector
	storage  storage.Storage
}

// Options позволяет подменить зависимости приложения, например в тестах.
type Options struct {
	// Build - информация о сборке для /version
	Build *buildinfo.Info
	// HTTPClient - клиент для обращений к AppTrove. По умолчанию apptrove.NewHTTPClient.
	HTTPClient apptrove.Doer
}

// NewApp создает и инициализирует новый экземпляр приложения.
// Хранилище выбирается по конфигурации; вызывающий обязан вызвать Close.
func NewApp(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	store, err := storage.NewStorage(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating storage: %w", err)
	}

	collector := metrics.NewCollector()

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = apptrove.NewHTTPClient(cfg.AppTrove, logger)
	}
	executor := apptrove.NewExecutor(httpClient, logger, collector)
	proxy := apptrove.NewClient(cfg.AppTrove, executor, logger)

	sessions := middleware.NewSessions(cfg.SecretKey, cfg.IsHTTPSEnabled())

	h := handler.NewHandler(
		service.NewAffiliateService(store, logger),
		service.NewLinkService(proxy, store, logger),
		store,
		sessions,
		opts.Build,
		logger,
	)

	a := &App{
		config:   cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		handler:  h,
		sessions: sessions,
		metrics:  collector,
		storage:  store,
	}
	a.setupRoutes()

	return a, nil
}

// setupRoutes настраивает HTTP маршруты и middleware для приложения.
func (a *App) setupRoutes() {
	a.router.Use(chimiddleware.RequestID)
	a.router.Use(chimiddleware.Recoverer)
	a.router.Use(middleware.LoggerMiddleware(a.logger, a.metrics))
	a.router.Use(middleware.DecompressRequest)
	a.router.Use(chimiddleware.Compress(5, "application/json", "text/plain"))
	a.router.Use(a.sessions.WithAffiliate)

	a.router.Get("/ping", a.handler.HandlePing)
	a.router.Get("/version", a.handler.HandleVersion)
	a.router.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	a.router.Route("/api", func(r chi.Router) {
		r.Route("/affiliates", func(r chi.Router) {
			r.Post("/", a.handler.HandleSignup)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAffiliate)
				r.Get("/me", a.handler.HandleGetMe)
				r.Patch("/me", a.handler.HandleUpdateMe)
				r.Delete("/me", a.handler.HandleDeleteMe)
				r.Get("/me/links", a.handler.HandleListMyLinks)
			})
		})

		r.Route("/apptrove", func(r chi.Router) {
			r.Get("/templates", a.handler.HandleListTemplates)
			r.Get("/links/{linkID}/stats", a.handler.HandleLinkStats)
			r.Post("/links", a.handler.HandleCreateLink)
		})
	})
}

// Router возвращает корневой обработчик приложения
func (a *App) Router() http.Handler {
	return a.router
}

// GetServer создает и возвращает настроенный HTTP сервер.
// Таймаут записи учитывает полный перебор адресов и учетных данных AppTrove.
func (a *App) GetServer() *http.Server {
	return &http.Server{
		Addr:         a.config.ServerAddress,
		Handler:      a.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}

// Close освобождает ресурсы приложения
func (a *App) Close() error {
	return a.storage.Close()
}

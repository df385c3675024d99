package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"studiosync/internal/config"
	"studiosync/internal/handlers"
	"studiosync/internal/idempotency"
	"studiosync/internal/logger"
	"studiosync/internal/middleware"
	"studiosync/internal/repository/board/inmemory"
	"studiosync/internal/repository/board/postgres"
	"studiosync/internal/service"
	"studiosync/internal/studioapi"
	"studiosync/internal/taskboard"
	"studiosync/internal/worker"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type boardStore interface {
	taskboard.Store
	HealthCheck(ctx context.Context) error
}

type deduper interface {
	service.Deduper
	HealthCheck(ctx context.Context) error
	Close() error
}

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	store     boardStore
	deduper   deduper
	schedule  *service.ScheduleService
	worker    *worker.RefreshWorker
	shutdowns []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init поднимает зависимости в порядке: логгер, хранилище доски, хранилище
// ключей бронирования, клиент API, сервисы, роутер.
func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStore(ctx); err != nil {
		return err
	}
	if err := a.initDeduper(ctx); err != nil {
		return err
	}

	client, err := studioapi.New(a.config.StudioAPI.BaseURL, a.config.StudioAPI.Token, a.config.StudioAPI.Timeout)
	if err != nil {
		return fmt.Errorf("клиент studio api: %w", err)
	}

	loc, err := a.config.ScheduleLocation()
	if err != nil {
		return fmt.Errorf("часовой пояс расписания: %w", err)
	}

	boards := service.NewBoardService(a.store, a.config.Repository.StorageKey)
	boards.Init(ctx)

	a.schedule = service.NewScheduleService(client, a.deduper, loc,
		service.WithCacheTTL(a.config.Schedule.RefreshInterval))
	a.worker = worker.NewRefreshWorker(a.schedule, a.config.Schedule.RefreshInterval)

	a.router = a.newRouter(
		handlers.NewBoardHandler(boards),
		handlers.NewScheduleHandler(a.schedule),
		handlers.NewPreferencesHandler(service.NewPreferencesService(client)),
		handlers.NewResourceHandler(service.NewResourceService(client)),
		handlers.NewDirectoryHandler(service.NewDirectoryService(client)),
		handlers.NewHealthHandler(map[string]handlers.HealthCheck{
			"board_store": a.store.HealthCheck,
			"deduper":     a.deduper.HealthCheck,
		}),
	)

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(a.router, "studiosync"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("App: Инициализация завершена",
		zap.String("addr", a.server.Addr),
		zap.String("repository", a.config.Repository.Type),
		zap.String("studio_api", a.config.StudioAPI.BaseURL))
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.config.Repository.Type {
	case "postgres":
		pg, err := postgres.New(ctx, a.config.Database.URL, postgres.PoolConfig{
			MaxConns:        a.config.Database.MaxConnections,
			MinConns:        a.config.Database.MinConnections,
			MaxConnIdleTime: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return fmt.Errorf("миграции: %w", err)
		}
		a.store = pg
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("App: Закрытие пула PostgreSQL...")
			pg.Close()
		})
	default:
		a.store = inmemory.NewBoardStorage()
	}
	return nil
}

func (a *App) initDeduper(ctx context.Context) error {
	if a.config.Redis.URL == "" {
		a.deduper = idempotency.NewMemoryDeduper(a.config.Redis.DeduperTTL)
		logger.Info("App: Ключи бронирования хранятся в памяти")
		return nil
	}

	d, err := idempotency.NewRedisDeduperFromURL(ctx, a.config.Redis.URL, a.config.Redis.DeduperTTL)
	if err != nil {
		return fmt.Errorf("подключение к redis: %w", err)
	}
	a.deduper = d
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: Закрытие соединения с Redis...")
		if err := d.Close(); err != nil {
			logger.Error("App: Ошибка закрытия Redis", err)
		}
	})
	return nil
}

func (a *App) newRouter(
	boards *handlers.BoardHandler,
	sched *handlers.ScheduleHandler,
	prefs *handlers.PreferencesHandler,
	resources *handlers.ResourceHandler,
	directory *handlers.DirectoryHandler,
	health *handlers.HealthHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))

	r.Get("/health", health.HealthCheck)
	r.Mount("/boards", boards.Routes())
	r.Mount("/schedule", sched.Routes())
	r.Mount("/preferences", prefs.Routes())
	r.Mount("/resources", resources.Routes())
	directory.Mount(r)

	return r
}

// Handler - корневой обработчик без otel-обёртки.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run блокируется до отмены ctx или ошибки сервера; воркер и сервер
// останавливаются вместе.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.worker.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("App: Остановка сервера...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close освобождает ресурсы в обратном порядке.
func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}

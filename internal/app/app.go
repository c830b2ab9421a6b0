package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"spiroexport/internal/config"
	apierrors "spiroexport/internal/errors"
	"spiroexport/internal/exporter"
	"spiroexport/internal/infrastructure"
	"spiroexport/internal/metrics"
	customMiddleware "spiroexport/internal/middleware"
	"spiroexport/internal/population"
	"spiroexport/internal/services"
	handlers "spiroexport/internal/transport/http"
)

const (
	AppName = "Spirometry Export"
)

// Version is set at build time with -ldflags "-X spiroexport/internal/app.Version=...".
var Version = "dev"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Metrics       *metrics.Collector
	Population    *population.Store
	ExportService *services.ExportService
	HealthService *services.HealthService
	ErrorHandler  *apierrors.ErrorHandler
	Validator     *customMiddleware.Validator
	// TracerProvider is nil unless spans are exported.
	TracerProvider *sdktrace.TracerProvider
}

// NewApplication loads the configuration, initializes the logger and builds
// the application.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.InfoContext(ctx, "application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	tp, err := infrastructure.InitializeTracing(ctx, cfg.Tracing, Version, logger)
	if err != nil {
		return nil, err
	}

	a := New(ctx, cfg, logger, metrics.NewCollector(nil))
	a.TracerProvider = tp
	return a, nil
}

// New wires the application from an already loaded configuration. The initial
// population load is attempted here; a failure leaves the store empty and the
// service not ready until the file becomes readable.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) *Application {
	a := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
	}

	a.initializeServices(ctx)
	a.setupRouter()
	a.createServer()
	return a
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) {
	var source services.PopulationSource
	var stats services.PopulationStats

	if path := a.Config.Data.PopulationFile; path != "" {
		a.Population = population.NewStore(path, a.Logger, a.Metrics)
		if err := a.Population.Reload(ctx); err != nil {
			a.Logger.WarnContext(ctx, "population unavailable at startup",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		source, stats = a.Population, a.Population
	}

	a.ExportService = services.NewExportService(
		source,
		exporter.NewCSVWriter(a.Config.Export.Dir),
		exporter.Options{BOMPrefix: a.Config.Export.BOMPrefix},
		a.Metrics,
		a.Logger,
	)
	a.HealthService = services.NewHealthService(Version, stats, a.Logger)
	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, false)
	a.Validator = customMiddleware.NewValidator()
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Tracing → RequestID → RealIP → Logger → Recoverer → Metrics
	r.Use(customMiddleware.Tracing(otel.GetTracerProvider()))
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))
	r.Use(customMiddleware.Metrics(a.Metrics))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(cors.Handler(a.corsOptions()))
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}
		r.Use(customMiddleware.BodyLimit(a.Config.Export.MaxBodyBytes, a.ErrorHandler))

		exportHandler := handlers.NewExportHandler(a.ExportService, a.Validator, a.Logger, a.ErrorHandler)
		r.Mount("/export", exportHandler.Routes())

		populationHandler := handlers.NewPopulationHandler(a.ExportService, a.Validator, a.Logger, a.ErrorHandler)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/population", populationHandler.Summary)

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
	})

	if a.Config.Server.EnableMetrics {
		r.Handle("/metrics", a.Metrics.Handler())
	}

	a.Router = r
}

func (a *Application) corsOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			customMiddleware.RequestIDHeader,
			"Content-Disposition",
			handlers.RecordsHeader,
		},
		MaxAge: 300,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP and, when enabled, watches the population file until ctx is
// cancelled or SIGINT/SIGTERM arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "server listening",
			slog.String("addr", a.Server.Addr),
			slog.String("version", Version))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.Population != nil && a.Config.Data.Watch {
		watcher := population.NewWatcher(a.Population.Path(), population.DefaultDebounce, a.Logger)
		g.Go(func() error {
			if err := watcher.Watch(gctx, a.Population.Reload); err != nil {
				// Serving continues with the data loaded so far.
				a.Logger.ErrorContext(gctx, "population watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(context.Background(), "shutdown requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.TracerProvider != nil {
		if err := a.TracerProvider.Shutdown(shutdownCtx); err != nil {
			a.Logger.WarnContext(ctx, "failed to flush traces", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.WarnContext(ctx, "failed to close log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application shutdown complete",
		slog.Duration("duration", time.Since(start)))
	return nil
}

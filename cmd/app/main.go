// cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"election_dashboard/pkg/api"
	"election_dashboard/pkg/catalog"
	"election_dashboard/pkg/config"
	"election_dashboard/pkg/dashboard"
	"election_dashboard/pkg/loader"
	"election_dashboard/pkg/scheduler"
	"election_dashboard/pkg/utils"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
	debug      = flag.Bool("debug", false, "Enable debug mode")
)

// App holds the running services
type App struct {
	cfg       *config.Config
	service   *dashboard.Service
	scheduler *scheduler.Scheduler
	server    *http.Server
	logger    *zap.Logger
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to read .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !config.Exists(*configFile) {
		logger.Warn("Configuration file not found, using defaults and environment",
			zap.String("path", *configFile))
	}

	app, err := initializeApp(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	level := cfg.GetLogLevel().String()
	if debug {
		level = "debug"
	}
	return utils.NewLogger(&utils.LogConfig{
		Level:      level,
		OutputPath: cfg.Log.OutputPath,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
		Console:    cfg.Log.Console,
		Debug:      debug || cfg.IsDevelopment(),
	})
}

func buildCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	cat := catalog.Default(cfg.DepartmentCode, cfg.CommuneCode)
	if len(cfg.Sources) == 0 {
		return cat, nil
	}

	overrides := make([]catalog.Source, len(cfg.Sources))
	for i, s := range cfg.Sources {
		overrides[i] = catalog.Source{Name: s.Name, URL: s.URL, Format: s.Format}
	}
	return cat.WithOverrides(overrides)
}

func initializeApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	cat, err := buildCatalog(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}

	fetcher := loader.NewHTTPFetcher(loader.FetcherOptions{
		Timeout:      cfg.Fetch.Timeout,
		MaxAttempts:  cfg.Fetch.MaxAttempts,
		InitialDelay: cfg.Fetch.InitialDelay,
		MaxDelay:     cfg.Fetch.MaxDelay,
		UserAgent:    cfg.Fetch.UserAgent,
	}, logger.Named("fetcher"))

	l := loader.New(cat, fetcher, logger.Named("loader"))
	service := dashboard.NewService(l, cat, dashboard.Options{Concurrency: cfg.Fetch.Concurrency}, logger.Named("dashboard"))

	sched := scheduler.NewScheduler(cfg.Refresh, logger.Named("scheduler"))
	if cfg.Refresh.Schedule != "" {
		if err := sched.ScheduleTask(scheduler.NewRefreshTask(service, cfg.Refresh)); err != nil {
			return nil, fmt.Errorf("scheduling refresh: %w", err)
		}
	}

	gin.DefaultWriter = utils.NewLogWriter(logger.Named("gin"), zapcore.DebugLevel)
	gin.DefaultErrorWriter = utils.NewLogWriter(logger.Named("gin"), zapcore.ErrorLevel)

	router := api.NewRouter(service, sched, api.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RefreshTimeout: cfg.Fetch.Timeout * 2,
		Debug:          *debug,
	}, logger.Named("http"))

	return &App{
		cfg:       cfg,
		service:   service,
		scheduler: sched,
		server: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		logger: logger,
	}, nil
}

func (a *App) run(ctx context.Context) error {
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	if a.cfg.Refresh.OnStart {
		if a.cfg.Refresh.Schedule != "" {
			if err := a.scheduler.RunNow(scheduler.RefreshTaskID); err != nil {
				a.logger.Error("Initial refresh not started", zap.Error(err))
			}
		} else {
			utils.SafeGo(a.logger, func() {
				if err := a.service.Refresh(ctx); err != nil {
					a.logger.Error("Initial refresh failed", zap.Error(err))
				}
			})
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening",
			zap.String("addr", a.server.Addr),
			zap.String("department", a.cfg.Catalog.DepartmentCode),
			zap.String("commune", a.cfg.Catalog.CommuneCode))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	return errors.Join(runErr, a.stop())
}

func (a *App) stop() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stopping http server: %w", err))
	}
	if err := a.scheduler.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping scheduler: %w", err))
	}

	for _, err := range errs {
		a.logger.Error("Shutdown error", zap.Error(err))
	}
	a.logger.Info("All services stopped")

	return errors.Join(errs...)
}

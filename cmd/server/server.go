package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"mediavault/internal/config"
	"mediavault/internal/domain/delivery"
	"mediavault/internal/domain/events"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/domain/pipeline"
	"mediavault/internal/infrastructure/auth"
	"mediavault/internal/infrastructure/database"
	"mediavault/internal/infrastructure/logger"
	"mediavault/internal/infrastructure/observability"
	repo "mediavault/internal/infrastructure/repository/media"
	"mediavault/internal/infrastructure/storage"
	"mediavault/internal/infrastructure/store"
	"mediavault/internal/interfaces/httpserver"
	"mediavault/utils/mediaid"
)

type Application struct {
	httpServer *httpserver.HttpServer
	runner     *pipeline.Runner
	cfg        *config.Config
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, runner *pipeline.Runner, cfg *config.Config, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		runner:     runner,
		cfg:        cfg,
		log:        log,
	}
}

// Start runs the HTTP server until the context ends, then drains the
// pipeline so in-flight analysis tasks exit cleanly.
func (a *Application) Start(ctx context.Context) error {
	err := a.httpServer.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if shutdownErr := a.runner.Shutdown(drainCtx); shutdownErr != nil {
		a.log.Error().Err(shutdownErr).Msg("pipeline drain timed out")
	}

	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	metadataStore, err := buildMetadataStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize metadata store")
	}

	blobStorage, health, err := buildBlobStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize payload storage")
	}

	hub := events.NewHub(log)
	classifier := pipeline.NewWeightedRandomClassifier(cfg.SafeBias)
	runner := pipeline.NewRunner(metadataStore, hub, classifier, pipeline.Config{
		Interval: cfg.ProcessingInterval,
		Step:     cfg.ProcessingStep,
	}, log)

	mediaService := domain.NewService(metadataStore, blobStorage, runner, cfg.MaxMediaBytes, mediaid.New, log)
	deliveryService := delivery.NewService(metadataStore, blobStorage, log)
	authValidator := auth.NewValidator(cfg, log)

	httpServer := httpserver.New(cfg, log, mediaService, deliveryService, hub, authValidator, health...)
	app := NewApplication(httpServer, runner, cfg, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func buildMetadataStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.Store, error) {
	if !cfg.IsPostgresMetadata() {
		log.Warn().Msg("using in-memory metadata store, records do not survive restarts")
		return store.NewMemoryStore(log), nil
	}

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return repo.NewRepository(db), nil
}

func buildBlobStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.BlobStorage, []httpserver.HealthChecker, error) {
	if cfg.IsLocalStorage() {
		local, err := storage.NewLocalStorage(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return local, []httpserver.HealthChecker{local}, nil
	}

	s3Storage, err := storage.NewS3Storage(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return s3Storage, []httpserver.HealthChecker{s3Storage}, nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evidencia-backend/config"
	"evidencia-backend/db"
	"evidencia-backend/handlers"
	"evidencia-backend/imageproc"
	"evidencia-backend/logger"
	"evidencia-backend/repository"
	"evidencia-backend/service"
	"evidencia-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repositories groups the persistence backends selected by DATABASE_URL
type repositories struct {
	vouchers     service.VoucherRepository
	readings     service.CounterReadingRepository
	calculations service.MeterCalculationRepository
	pool         *pgxpool.Pool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	repos, err := initRepositories(ctx, cfg)
	if err != nil {
		logger.L.Error("failed to initialize database", slog.Any("error", err))
		os.Exit(1)
	}
	if repos.pool != nil {
		defer repos.pool.Close()
	}

	// Initialize storage
	blobStore, err := storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		logger.L.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	logger.L.Info("storage initialized", slog.String("type", string(cfg.Storage.Type)))

	// Initialize services
	compressor := imageproc.NewCompressor(logger.L, cfg.Image)
	ingest := service.NewIngestService(
		service.IngestWithBlobStore(blobStore),
		service.IngestWithCompressor(compressor),
		service.IngestWithBuckets(cfg.Buckets),
		service.IngestWithLogger(logger.L),
	)
	resolver := service.NewResolver(
		service.ResolverWithVoucherRepository(repos.vouchers),
		service.ResolverWithCounterReadingRepository(repos.readings),
		service.ResolverWithMeterCalculationRepository(repos.calculations),
		service.ResolverWithBlobStore(blobStore),
		service.ResolverWithLegacyFiles(storage.NewLegacyFiles(cfg.LegacyPath)),
		service.ResolverWithBuckets(cfg.Buckets),
		service.ResolverWithLogger(logger.Component("resolver")),
	)
	voucherService := service.NewVoucherService(
		service.WithVoucherRepository(repos.vouchers),
		service.VoucherWithIngestService(ingest),
		service.VoucherWithLimits(cfg.VoucherLimits),
		service.VoucherWithLogger(logger.L),
	)
	readingService := service.NewCounterReadingService(
		service.WithCounterReadingRepository(repos.readings),
		service.CounterWithIngestService(ingest),
		service.CounterWithLimits(cfg.CounterLimits),
		service.CounterWithLogger(logger.L),
	)
	calculationService := service.NewMeterCalculationService(
		service.WithMeterCalculationRepository(repos.calculations),
		service.CalculationWithIngestService(ingest),
		service.CalculationWithLimits(cfg.CalculationLimits),
		service.CalculationWithLogger(logger.L),
	)

	// Initialize handlers
	var pinger handlers.Pinger
	if repos.pool != nil {
		pinger = repos.pool
	}
	router := handlers.NewRouter(handlers.Router{
		Vouchers:     handlers.NewVoucherHandler(voucherService, resolver, cfg.VoucherLimits),
		Readings:     handlers.NewCounterReadingHandler(readingService, resolver, cfg.CounterLimits),
		Calculations: handlers.NewMeterCalculationHandler(calculationService, resolver, cfg.CalculationLimits),
		Health:       handlers.NewHealthHandler(pinger, blobStore),
		Logger:       logger.L,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L.Info("server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("failed to start server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.L.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

func initRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.UsesMemoryDatabase() {
		logger.L.Warn("using in-memory repositories, records are lost on restart")
		return &repositories{
			vouchers:     repository.NewMemoryVoucherRepository(),
			readings:     repository.NewMemoryCounterReadingRepository(),
			calculations: repository.NewMemoryMeterCalculationRepository(),
		}, nil
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.L.Info("postgres connection established")

	return &repositories{
		vouchers:     repository.NewVoucherRepository(pool),
		readings:     repository.NewCounterReadingRepository(pool),
		calculations: repository.NewMeterCalculationRepository(pool),
		pool:         pool,
	}, nil
}

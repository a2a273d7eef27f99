package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mediaUploader/cache"
	"mediaUploader/config"
	"mediaUploader/converter"
	"mediaUploader/database"
	"mediaUploader/events"
	"mediaUploader/handlers"
	"mediaUploader/middleware"
	"mediaUploader/processor"
	"mediaUploader/reconciler"
	"mediaUploader/repository"
	"mediaUploader/service"
	"mediaUploader/storage"
	"mediaUploader/uploader"
	"mediaUploader/validation"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		logger.Fatal("Failed to create blob store", zap.Error(err))
	}

	// Redis and kafka are enhancements: the pipeline runs without them.
	var statusCache *cache.ConversionCache
	if cacheConn, err := database.ConnectCache(cfg.RedisAddr); err != nil {
		logger.Warn("Redis unavailable, conversion status served from postgres only", zap.Error(err))
	} else {
		defer cacheConn.Close()
		statusCache = cache.NewConversionCache(cacheConn)
	}

	var producer events.Producer
	if p, err := events.NewProducer([]string{cfg.KafkaBrokers}, cfg.KafkaTopic); err != nil {
		logger.Warn("Kafka unavailable, asset events disabled", zap.Error(err))
	} else {
		defer p.Close()
		producer = p
	}

	repo := repository.NewPostgresRepo(db)

	conversionClient := converter.NewHTTPServiceClient(
		cfg.ConversionURL,
		time.Duration(cfg.ConversionTimeoutSec)*time.Second,
	)

	// Typed-nil guards: hand the caches over only when redis is actually up.
	var pipelineCache converter.StatusCache
	var serviceCache service.ConversionStatusCache
	if statusCache != nil {
		pipelineCache = statusCache
		serviceCache = statusCache
	}
	pipeline := converter.NewPipeline(
		store, repo, conversionClient, pipelineCache, producer,
		time.Duration(cfg.SignedURLTTLSec)*time.Second,
		logger,
	)
	previews := processor.NewPreviewGenerator(store, cfg.PreviewMaxDimension, logger)

	hooks := []uploader.PostUploadHook{pipeline.AfterUpload, previews.AfterUpload}
	if producer != nil {
		hooks = append(hooks, events.PublishCreatedHook(producer, logger))
	}

	rules := validation.Rules{
		AllowedTypes: cfg.AllowedTypes,
		MaxFileSize:  cfg.MaxFileSize,
	}
	orchestrator := uploader.NewOrchestrator(rules, store, repo, converter.IsRawFormat, hooks, logger)
	mediaService := service.NewMediaService(orchestrator, repo, serviceCache, logger)
	mediaHandler := handlers.NewMediaHandler(mediaService, cfg.MaxConcurrent, cfg.MaxRetries, logger)

	sweep := reconciler.New(repo, pipeline, cfg.ReconcileBatchSize, logger)
	if err := sweep.Start(cfg.ReconcileSchedule); err != nil {
		logger.Fatal("Failed to schedule conversion reconciler", zap.Error(err))
	}
	defer sweep.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/entities/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		mediaHandler.Upload(w, r)
	})
	mux.HandleFunc("/assets/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		mediaHandler.ConversionStatus(w, r)
	})

	handler := middleware.TraceID(middleware.Logging(logger)(middleware.Recovery(logger)(mux)))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("Server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

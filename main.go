package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"concierge-pipeline/config"
	"concierge-pipeline/ingest"
	"concierge-pipeline/lookup"
	"concierge-pipeline/pipeline"
	"concierge-pipeline/scraper/opendatasoft"
	"concierge-pipeline/services"
	"concierge-pipeline/storage"
	"concierge-pipeline/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithOptions(os.Stdout, cfg.LogLevel, cfg.LogColor)

	logger.Info("=== Concierge Pipeline starting ===")
	logger.Info("Config: bucket %s | listings max %d (page %d) | geocode concurrency %d every %dms",
		cfg.CustomerBucket, cfg.MaxListings, cfg.PageSize, cfg.GeocodeConcurrency, cfg.RateLimitMs)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}

	pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN(), retry, logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer pgWriter.Close()

	if cfg.ResetOnStart {
		if err := pgWriter.Reset(ctx); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		logger.Info("Tables reset")
	}

	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Endpoint:  cfg.MinioURL(),
		Region:    cfg.MinioRegion,
		AccessKey: cfg.MinioUser,
		SecretKey: cfg.MinioPassword,
	}, logger)
	if err != nil {
		logger.Error("Failed to build object store client: %v", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var postal ingest.PostalLookup = lookup.NewPostalClient(cfg.PostalURL, httpClient, logger)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		postal = lookup.NewPostalCache(postal, rdb, cfg.CacheTTL, logger)
		logger.Info("Postal lookups cached in Redis at %s (ttl %s)", cfg.RedisAddr, cfg.CacheTTL)
	}

	ingester := ingest.NewIngester(
		ingest.NewTextDecoder(ingest.NewChardetDetector()),
		ingest.NewNormalizer(ingest.NewResolver(postal, logger), logger),
		logger,
	)

	geocoder := lookup.NewGeocoder(cfg.GeocoderURL, cfg.GeocoderUserAgent, httpClient)
	cleaner := services.NewCleaner(geocoder, utils.NewWorkerPool(cfg.GeocodeConcurrency, cfg.RateLimit()), logger)
	listings := opendatasoft.New(opendatasoft.OptionsFromConfig(cfg), httpClient, cfg.MaxRetries, logger)

	p := pipeline.New(
		pipeline.Options{
			CustomerBucket: cfg.CustomerBucket,
			ExportBucket:   cfg.ExportBucket,
			ExportDir:      cfg.ExportDir,
		},
		store, pgWriter, ingester, listings, cleaner, services.NewReconciler(logger), logger,
	)

	report, err := p.Run(ctx)
	if err != nil {
		logger.Error("Run failed: %v", err)
		os.Exit(1)
	}

	services.NewInsightService(logger).Print(report)
}

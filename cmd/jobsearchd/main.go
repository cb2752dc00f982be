// Package main wires together the job search service binary.
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
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	openaianalyzer "github.com/seekrai/jobsearch/internal/analyzer/openai"
	"github.com/seekrai/jobsearch/internal/api"
	"github.com/seekrai/jobsearch/internal/clock/system"
	"github.com/seekrai/jobsearch/internal/config"
	"github.com/seekrai/jobsearch/internal/export"
	"github.com/seekrai/jobsearch/internal/fetcher/boards"
	"github.com/seekrai/jobsearch/internal/history"
	"github.com/seekrai/jobsearch/internal/id/uuid"
	"github.com/seekrai/jobsearch/internal/logging"
	"github.com/seekrai/jobsearch/internal/metrics"
	"github.com/seekrai/jobsearch/internal/notify"
	"github.com/seekrai/jobsearch/internal/orchestrator"
	"github.com/seekrai/jobsearch/internal/progress"
	"github.com/seekrai/jobsearch/internal/search"
	blobstorage "github.com/seekrai/jobsearch/internal/storage"
	"github.com/seekrai/jobsearch/internal/storage/gcs"
	"github.com/seekrai/jobsearch/internal/storage/local"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var cache progress.Cache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := progress.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			logger.Warn("redis cache unavailable, progress runs fallback-only", zap.Error(err))
		} else {
			cache = redisCache
			defer func() {
				if closeErr := redisCache.Close(); closeErr != nil {
					logger.Warn("close redis cache", zap.Error(closeErr))
				}
			}()
		}
	}
	store := progress.NewStore(cache, cfg.CacheTTL(), logger.Named("progress"))

	blobStore, err := buildBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	clock := system.New()
	exporter := export.NewCSVExporter(blobStore, clock, logger.Named("export"))

	fetcher := boards.New(boards.Config{
		BaseURL:           cfg.Search.BoardURL,
		Site:              firstSite(cfg.Search.Sites),
		UserAgent:         cfg.Search.UserAgent,
		RequestsPerSecond: cfg.Search.RequestsPerSecond,
	}, logger.Named("fetcher"))

	var analyzer search.Analyzer
	if cfg.Analysis.Enabled {
		analyzer, err = openaianalyzer.NewAnalyzer(cfg.Analysis.OpenAIAPIKey, cfg.Analysis.Model, logger.Named("analyzer"))
		if err != nil {
			return fmt.Errorf("init analyzer: %w", err)
		}
	}

	notifier, err := buildNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := notifier.Close(); closeErr != nil {
			logger.Warn("close notifier", zap.Error(closeErr))
		}
	}()

	hist, err := buildHistory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := hist.Close(); closeErr != nil {
			logger.Warn("close history provider", zap.Error(closeErr))
		}
	}()

	orch := orchestrator.New(
		orchestrator.Config{
			AnalysisEnabled:      cfg.Analysis.Enabled,
			BackgroundThreshold:  cfg.Search.BackgroundThreshold,
			DefaultResultsWanted: cfg.Search.DefaultResultsWanted,
			DefaultLocation:      cfg.Search.DefaultLocation,
			Sites:                cfg.Search.Sites,
			HoursOld:             cfg.Search.HoursOld,
			Country:              cfg.Search.DefaultCountry,
			BatchSize:            cfg.Analysis.BatchSize,
			BatchPause:           cfg.BatchPause(),
			DescriptionMaxLen:    cfg.Search.DescriptionMaxLen,
		},
		fetcher,
		analyzer,
		exporter,
		store,
		uuid.New(),
		clock,
		notifier,
		hist,
		logger.Named("orchestrator"),
	)

	apiServer := api.NewServer(orch, store, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func buildBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (blobstorage.BlobStore, error) {
	switch cfg.Export.Backend {
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Export.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local export dir: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Export.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		return store, nil
	case "noop":
		logger.Warn("export backend is noop, result files are discarded")
		return blobstorage.NoOpStore{}, nil
	default:
		return nil, fmt.Errorf("unknown export backend %q", cfg.Export.Backend)
	}
}

func buildNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Provider, error) {
	if !cfg.Notify.Enabled {
		return notify.NoOpProvider{}, nil
	}
	provider, err := notify.NewPubSubProvider(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicName, logger.Named("notify"))
	if err != nil {
		return nil, fmt.Errorf("init pubsub notifier: %w", err)
	}
	return provider, nil
}

func buildHistory(ctx context.Context, cfg config.Config, logger *zap.Logger) (history.Provider, error) {
	if cfg.History.DSN == "" {
		return history.NoOpProvider{}, nil
	}
	provider, err := history.NewPostgresProvider(ctx, cfg.History.DSN)
	if err != nil {
		// History is best-effort; a down database should not block startup.
		logger.Warn("history database unavailable, continuing without persistence", zap.Error(err))
		return history.NoOpProvider{}, nil
	}
	return provider, nil
}

func firstSite(sites []string) string {
	if len(sites) == 0 {
		return "board"
	}
	return sites[0]
}

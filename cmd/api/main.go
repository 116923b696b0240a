package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/openmohaa/medal-forecast/internal/config"
	"github.com/openmohaa/medal-forecast/internal/handlers"
	"github.com/openmohaa/medal-forecast/internal/inference"
	"github.com/openmohaa/medal-forecast/internal/logic"
	"github.com/openmohaa/medal-forecast/internal/source"
	"github.com/openmohaa/medal-forecast/internal/worker"
)

var version = "dev"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	log := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Env == "development" {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
			log = logger.Sugar()
		}
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			SampleRate:       1.0,
			AttachStacktrace: true,
			Environment:      cfg.Env,
			Release:          "medal-forecast@" + version,
		}); err != nil {
			log.Warnw("Sentry initialization failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Infow("Sentry error reporting enabled", "environment", cfg.Env)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backends
	connectCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	backends, err := source.Connect(connectCtx, source.BackendURLs{
		ClickHouse: cfg.ClickHouseURL,
		Postgres:   cfg.PostgresURL,
		MySQL:      cfg.MySQLDSN,
		Redis:      cfg.RedisURL,
	}, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("connect backends: %w", err)
	}
	defer backends.Close()

	deps := backends.Deps(source.NewHTTPClient(cfg.FetchTimeout), cfg.MaxSourceBytes)
	openSource := func(uri string) (logic.Fetcher, error) {
		f, err := source.Open(uri, deps)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	// Model runtime
	loader := inference.NewLoader(&inference.AutoRuntime{
		TFLite: inference.NewTFLiteRuntime(cfg.TFLiteThreads, logger),
		Linear: inference.LinearRuntime{},
	}, logger)
	defer loader.Close()

	forecastModel, err := artifactSession(loader, cfg.ForecastModel, deps)
	if err != nil {
		return fmt.Errorf("forecast model: %w", err)
	}

	// Worker pool
	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount: cfg.WorkerCount,
		QueueSize:   cfg.QueueSize,
		JobTimeout:  cfg.JobTimeout,
		Logger:      logger,
	})
	pool.Start(ctx)
	defer pool.Stop()

	orchestratorCfg := logic.OrchestratorConfig{
		Window:     cfg.ForecastWindow,
		Executor:   pool,
		OnDegraded: reportDegraded,
		Logger:     logger,
	}
	if forecastModel != nil {
		orchestratorCfg.Model = logic.NewInferenceAdapter(forecastModel, cfg.FeatureInput)
	}
	forecast := logic.NewForecastService(orchestratorCfg)

	classifier, err := newClassifier(ctx, cfg, loader, deps, logger)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	if cfg.ForecastSource != "" {
		src, err := openSource(cfg.ForecastSource)
		if err != nil {
			return fmt.Errorf("forecast source: %w", err)
		}
		if resp, err := forecast.Load(ctx, src); err != nil {
			log.Errorw("Initial source load failed", "source", cfg.ForecastSource, "error", err)
		} else {
			log.Infow("Initial source loaded", "entities", resp.Entities, "records", resp.Records)
		}
	}

	h := handlers.New(handlers.Config{
		Queue:          pool,
		Logger:         logger,
		Forecast:       forecast,
		Classifier:     classifier,
		OpenSource:     openSource,
		ForecastSource: cfg.ForecastSource,
		MaxSourceBytes: cfg.MaxSourceBytes,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Routes(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Starting server", "port", cfg.Port, "env", cfg.Env, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Infow("Shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// artifactSession returns nil when uri is empty
func artifactSession(loader *inference.Loader, uri string, deps source.Deps) (*logic.ArtifactSession, error) {
	if uri == "" {
		return nil, nil
	}
	fetcher, err := source.Open(uri, deps)
	if err != nil {
		return nil, err
	}
	return &logic.ArtifactSession{Loader: loader, Artifact: uri, Fetcher: fetcher}, nil
}

// newClassifier wires the classifier and attempts an initial asset load.
// A failed load leaves the classifier answering not-ready until a reload.
func newClassifier(ctx context.Context, cfg *config.Config, loader *inference.Loader, deps source.Deps, logger *zap.Logger) (logic.ClassificationAdapter, error) {
	if cfg.ClassifierModel == "" {
		return nil, nil
	}
	model, err := artifactSession(loader, cfg.ClassifierModel, deps)
	if err != nil {
		return nil, err
	}
	vocab, err := source.Open(cfg.ClassifierVocabulary, deps)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}

	classifier := logic.NewClassificationAdapter(logic.ClassifierConfig{
		Model:      model,
		Vocabulary: vocab,
		Evict:      func() { loader.Evict(cfg.ClassifierModel) },
		Logger:     logger,
	})
	if err := classifier.LoadAssets(ctx); err != nil {
		logger.Sugar().Warnw("Classifier assets not loaded", "error", err)
		sentry.CaptureException(err)
	}
	return classifier, nil
}

// reportDegraded forwards model fallbacks to Sentry
func reportDegraded(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("component", "forecast")
		scope.SetTag("degraded", "true")
		sentry.CaptureException(err)
	})
}

// Package main is the entry point for the OPiN data platform: ingestion,
// quality scoring, privacy proofs, aggregation, and real-time notification
// over one HTTP gateway.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gapilongo/OPiN/broker"
	"github.com/gapilongo/OPiN/config"
	gateway "github.com/gapilongo/OPiN/gateway/http"
	"github.com/gapilongo/OPiN/health"
	"github.com/gapilongo/OPiN/metric"
	"github.com/gapilongo/OPiN/notify"
	"github.com/gapilongo/OPiN/pipeline"
	"github.com/gapilongo/OPiN/processor"
	"github.com/gapilongo/OPiN/proof"
	"github.com/gapilongo/OPiN/storage"
	"github.com/gapilongo/OPiN/subscription"
	"github.com/gapilongo/OPiN/types"
)

// Build information constants.
const (
	Version = "0.1.0"
	appName = "opin"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printHelp()
		return nil
	}

	cfg, loader, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("configuration is valid")
		return nil
	}

	logLevel, logFormat := cfg.Log.Level, cfg.Log.Format
	if cliCfg.LogLevel != "" {
		logLevel = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		logFormat = cliCfg.LogFormat
	}
	logger := setupLogger(logLevel, logFormat)
	slog.SetDefault(logger)

	logger.Info("starting OPiN", "version", Version, "config_path", cliCfg.ConfigPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if loader != nil {
		stopWatch, err := loader.Watch()
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		} else {
			defer stopWatch()
		}
	}

	return runPlatform(ctx, cfg, logger, cliCfg.ShutdownTimeout)
}

func loadConfig(cliCfg *CLIConfig) (*config.Config, *config.Loader, error) {
	if cliCfg.ConfigPath == "" {
		return config.Default(), nil, nil
	}
	loader, err := config.NewLoader(cliCfg.ConfigPath, nil)
	if err != nil {
		return nil, nil, err
	}
	return loader.Config(), loader, nil
}

func runPlatform(ctx context.Context, cfg *config.Config, logger *slog.Logger, shutdownTimeout time.Duration) error {
	// Metrics.
	var metrics *metric.Metrics
	var metricsHandler http.Handler
	var monitorOpts []health.Option
	if cfg.Metrics.Enabled {
		registry := metric.NewMetricsRegistry()
		metrics = registry.CoreMetrics()
		metricsHandler = metric.NewServer(0, cfg.Metrics.Path, registry).Handler()
		monitorOpts = append(monitorOpts, health.WithRecorder(metrics))
	}
	monitor := health.NewMonitor(monitorOpts...)

	// Storage.
	store, err := openStore(ctx, cfg, logger, monitor)
	if err != nil {
		return err
	}
	defer store.Close()

	// Core services.
	registry := processor.NewDefaultRegistry(metrics, logger)
	proofs := proof.NewDefaultService(metrics, logger)
	b := broker.New(metrics, logger)
	provider := subscription.NewProvider(ctx, store, cfg.Subscriptions.CacheTTL.Std(), logger)

	var email notify.EmailSender
	if cfg.SMTP.Host != "" {
		email = notify.NewSMTPSender(cfg.SMTP)
	}
	dispatcher := notify.NewDispatcher(
		notify.Config{Workers: cfg.Dispatcher.Workers, QueueSize: cfg.Dispatcher.QueueSize},
		notify.NewWebhookSender(nil), email, b, metrics, logger,
	)
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("starting dispatcher: %w", err)
	}
	defer func() {
		if err := dispatcher.Stop(shutdownTimeout); err != nil {
			logger.Warn("dispatcher stop", "error", err)
		}
	}()
	monitor.UpdateHealthy("dispatcher", "delivery workers running")

	notifier := &matchingNotifier{provider: provider, dispatcher: dispatcher, logger: logger}
	pl := pipeline.New(registry, proofs, store, logger,
		pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
		pipeline.WithMetrics(metrics),
		pipeline.WithNotifier(notifier),
	)
	monitor.UpdateHealthy("pipeline", "ready")

	srv := gateway.NewServer(cfg.Server, gateway.Deps{
		Pipeline:   pl,
		Store:      store,
		Provider:   provider,
		Dispatcher: dispatcher,
		Broker:     b,
		Monitor:    monitor,
		Metrics:    metricsHandler,
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, monitor *health.Monitor) (storage.Store, error) {
	if !cfg.NATS.Enabled {
		logger.Info("using in-memory storage")
		monitor.UpdateDegraded("storage", "in-memory store, data is not durable")
		return storage.NewMemoryStore(), nil
	}

	store, err := storage.NewNATSStore(ctx, cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting storage: %w", err)
	}
	logger.Info("connected to NATS storage", "url", cfg.NATS.URL)
	monitor.UpdateHealthy("storage", "jetstream connected")
	return store, nil
}

// matchingNotifier glues the pipeline to subscription matching and delivery.
type matchingNotifier struct {
	provider   *subscription.Provider
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
}

func (n *matchingNotifier) NotifyPoint(ctx context.Context, point *types.DataPoint) {
	matched, err := n.provider.MatchPoint(ctx, point)
	if err != nil {
		n.logger.Warn("subscription matching failed", "point_id", point.ID, "error", err)
		return
	}
	if len(matched) > 0 {
		n.dispatcher.Dispatch(ctx, point, matched)
	}
}

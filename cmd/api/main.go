package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/alert"
	"github.com/hamed0406/sitewatch/internal/config"
	"github.com/hamed0406/sitewatch/internal/engine"
	"github.com/hamed0406/sitewatch/internal/httpapi"
	apimw "github.com/hamed0406/sitewatch/internal/httpapi/middleware"
	"github.com/hamed0406/sitewatch/internal/logging"
	"github.com/hamed0406/sitewatch/internal/notify"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/repo"
	"github.com/hamed0406/sitewatch/internal/repo/file"
	"github.com/hamed0406/sitewatch/internal/repo/memory"
	"github.com/hamed0406/sitewatch/internal/repo/postgres"
	"github.com/hamed0406/sitewatch/internal/repo/sqlite"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(logging.Options{
		Dir:     cfg.LogDir,
		Level:   cfg.LogLevel,
		Console: cfg.LogConsole,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open", zap.Error(err), zap.String("fallback", "memory"))
		store = memory.New()
	}
	defer store.Close()

	seeds, err := config.LoadSeeds(cfg.SeedFile)
	if err != nil {
		logger.Fatal("seed_file", zap.String("path", cfg.SeedFile), zap.Error(err))
	}
	opts := engine.Options{
		Interval: cfg.CheckInterval,
		Alert:    alert.Config{NotifyTimeout: cfg.NotifyTimeout},
	}
	for _, s := range seeds {
		opts.Seeds = append(opts.Seeds, engine.Seed{URL: s.URL, Name: s.Name, Category: s.Category})
	}

	eng := engine.Init(ctx, logger, store, newNotifier(cfg, logger), opts)
	if err := eng.Start(ctx, newProber(cfg), scheduler.Config{
		Timeout:       cfg.ProbeTimeout,
		MaxConcurrent: cfg.MaxConcurrent,
	}); err != nil {
		logger.Fatal("engine_start", zap.Error(err))
	}

	api := httpapi.NewServer(logger, eng)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown_requested")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	if err := eng.Close(sctx); err != nil {
		logger.Error("final_save", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}

// openStore picks Postgres, then SQLite, then the YAML state file.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		logger.Info("store", zap.String("kind", "postgres"))
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	case cfg.SQLitePath != "":
		logger.Info("store", zap.String("kind", "sqlite"), zap.String("path", cfg.SQLitePath))
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		logger.Info("store", zap.String("kind", "file"), zap.String("path", cfg.StateFile))
		return file.Open(cfg.StateFile)
	}
}

func newProber(cfg config.Config) probe.Prober {
	detector := probe.DefaultSoftOffline()
	detector.BodyPatterns = cfg.SoftOfflinePatterns

	var p probe.Prober
	if cfg.ProxyURL != "" {
		p = probe.NewProxyChecker(cfg.ProxyURL, cfg.ProbeTimeout, detector)
	} else {
		p = probe.NewHTTPChecker(cfg.ProbeTimeout, detector)
	}
	if cfg.RetryAttempts > 1 {
		p = &probe.RetryChecker{Inner: p, Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff}
	}
	if cfg.DNSDiagnostics {
		p = &probe.DNSAnnotator{Inner: p}
	}
	return p
}

func newNotifier(cfg config.Config, logger *zap.Logger) notify.Notifier {
	sinks := notify.Multi{notify.Log{Logger: logger}}
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		sinks = append(sinks, s)
	}
	if w := notify.NewWebhook(cfg.AlertWebhookURL); w != nil {
		sinks = append(sinks, w)
	}
	return sinks
}

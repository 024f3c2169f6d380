package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"facetrack/internal/attendance"
	"facetrack/internal/avatar"
	"facetrack/internal/camera"
	"facetrack/internal/clock"
	"facetrack/internal/config"
	"facetrack/internal/detection"
	"facetrack/internal/httpapi"
	"facetrack/internal/identity"
	"facetrack/internal/logging"
	"facetrack/internal/metrics"
	"facetrack/internal/queue"
	"facetrack/internal/session"
	"facetrack/internal/store"
	"facetrack/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := logging.Init(cfg.Env)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

// backends holds the optional external connections; either may be nil.
type backends struct {
	redis *store.Redis
	db    *store.DB
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

func openSlot(ctx context.Context, cfg config.App, b *backends) (store.Slot, error) {
	switch cfg.SlotBackend {
	case "memory", "":
		return store.NewMemorySlot(), nil
	case "redis":
		if b.redis == nil {
			b.redis = store.NewRedis(cfg.RedisAddr)
		}
		return store.NewRedisSlot(b.redis.Client, cfg.SlotPrefix), nil
	case "postgres":
		db, err := store.NewDB(cfg.DatabaseURL)
		b.db = db
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		return store.NewSQLSlot(ctx, db.Client)
	default:
		return nil, fmt.Errorf("unknown slot backend %q", cfg.SlotBackend)
	}
}

func openQueue(cfg config.App, b *backends) queue.Queue {
	if cfg.QueueBackend == "memory" {
		return queue.NewInMemory(64)
	}
	if b.redis == nil {
		b.redis = store.NewRedis(cfg.RedisAddr)
	}
	return queue.NewRedisQueue(b.redis.Client, cfg.QueueKey)
}

func cameraDevice(cfg config.App, logger *slog.Logger) camera.Device {
	if cfg.CameraURL == "" {
		logger.Info("no camera bridge configured, scanner will use the synthetic feed")
		return camera.Unavailable{}
	}
	return camera.New(cfg.CameraURL)
}

func run(cfg config.App, logger *slog.Logger) error {
	ctx := context.Background()

	var b backends
	defer b.close()

	slot, err := openSlot(ctx, cfg, &b)
	if err != nil {
		return err
	}
	q := openQueue(cfg, &b)

	// Without a shared queue no worker process can read confirmations, so they
	// are drained in-process.
	consumeCtx, stopConsumer := context.WithCancel(logging.ContextWithLogger(ctx, logger.With("component", "worker")))
	consumerDone := make(chan struct{})
	if _, ok := q.(*queue.InMemory); ok {
		go func() {
			defer close(consumerDone)
			if err := worker.Run(consumeCtx, q, worker.LogConfirmation); err != nil {
				logger.Error("in-process consumer failed", "error", err)
			}
		}()
	} else {
		close(consumerDone)
	}
	defer func() {
		stopConsumer()
		<-consumerDone
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clk := clock.New()
	dir := identity.DemoDirectory()

	sessions := session.NewManager(dir, slot, session.Options{
		Secret: cfg.SharedSecret,
		Delay:  cfg.LoginDelay,
		Clock:  clk,
		Logger: logger,
	})
	sessions.Restore(ctx)

	scanner := detection.New(dir, cameraDevice(cfg, logger), detection.Options{
		Timing: detection.Timing{
			Period:          cfg.ScanPeriod,
			ProcessingDelay: cfg.ProcessingDelay,
			DisplayWindow:   cfg.DisplayWindow,
			ConfirmWindow:   cfg.ConfirmWindow,
		},
		Clock:  clk,
		Hooks:  httpapi.ScannerHooks(m, q, logger),
		Logger: logger,
	})
	defer scanner.Stop()

	avatars := avatar.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if cfg.CloudinaryCloudName != "" {
		logger.Info("cloudinary avatars enabled", "cloud", cfg.CloudinaryCloudName)
	}

	health := map[string]httpapi.HealthCheck{}
	if b.redis != nil {
		health["redis"] = b.redis.Healthy
	}
	if b.db != nil {
		health["db"] = func(ctx context.Context) bool { return b.db.Client.PingContext(ctx) == nil }
	}

	srv := httpapi.New(httpapi.Config{
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
	}, httpapi.Deps{
		Sessions:   sessions,
		Scanner:    scanner,
		Attendance: attendance.NewTable(attendance.Demo(clk.Now())),
		Avatars:    avatars,
		Metrics:    m,
		Clock:      clk,
		Logger:     logger,
		Health:     health,
	})
	r := httpapi.NewRouter(srv, httpapi.RouterOptions{
		RateLimitPerMin: cfg.RateLimitPerMin,
		Gatherer:        reg,
		AccessLog:       gin.Mode() != gin.ReleaseMode,
	})

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort, "slot", cfg.SlotBackend, "queue", cfg.QueueBackend)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", "error", err)
	}
	scanner.Stop()

	logger.Info("server exited")
	return nil
}

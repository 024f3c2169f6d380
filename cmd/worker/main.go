package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"facetrack/internal/config"
	"facetrack/internal/logging"
	"facetrack/internal/queue"
	"facetrack/internal/store"
	"facetrack/internal/worker"
)

// Worker drains attendance confirmations published by the API and logs them.
func main() {
	cfg := config.Load()
	logger := logging.Init(cfg.Env).With("component", "worker")

	ctx, cancel := context.WithCancel(logging.ContextWithLogger(context.Background(), logger))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		logger.Error("worker needs a shared queue, set QUEUE_BACKEND=redis")
		os.Exit(1)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet, will keep retrying", "addr", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	logger.Info("worker started, waiting for confirmations", "queue", cfg.QueueKey)
	if err := worker.Run(ctx, q, worker.LogConfirmation); err != nil {
		logger.Error("queue consume init failed", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

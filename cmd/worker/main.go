package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"staffattend/internal/app"
	"staffattend/internal/config"
	"staffattend/internal/enroll"
	"staffattend/internal/logging"
)

// Worker consumes enroll jobs and stores the extracted descriptors.
func main() {
	cfg, err := config.Load()
	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.QueueBackend == "memory" {
		log.Fatal("the worker needs QUEUE_BACKEND=redis; the memory queue is consumed inside the api process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if !cfg.FaceSkip {
		if err := a.Face.Health(ctx); err != nil {
			log.Warn("face service not available, jobs will fail until it is", zap.Error(err))
		} else {
			log.Info("face service connected")
		}
	}

	if err := enroll.NewWorker(a.Queue, a.Employees, a.Face, log.Named("enroll")).Run(ctx); err != nil {
		log.Error("worker stopped", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"staffattend/internal/app"
	"staffattend/internal/config"
	"staffattend/internal/enroll"
	"staffattend/internal/handler"
	"staffattend/internal/httpmiddleware"
	"staffattend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("api server failed", zap.Error(err))
	}
}

func run(cfg config.App, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		return err
	}

	// Without a shared queue nobody else can consume enroll jobs.
	if cfg.QueueBackend == "memory" {
		w := enroll.NewWorker(a.Queue, a.Employees, a.Face, log.Named("enroll"))
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error("in-process enroll worker stopped", zap.Error(err))
			}
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.Logger(log.Named("http"), "/healthz", "/metrics"))
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(securityHeaders())
	if l := a.Limiter(); l != nil {
		r.Use(httpmiddleware.RateLimit(l, log))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		deps := a.Health(c.Request.Context())
		status := http.StatusOK
		for _, ok := range deps {
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		body := gin.H{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		for name, ok := range deps {
			body[name] = ok
		}
		c.JSON(status, body)
	})

	handler.New(a.Attendance, a.Employees, a.Reports, log.Named("handler")).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}
	log.Info("server exited")
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Station-ID"},
		MaxAge:       24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}


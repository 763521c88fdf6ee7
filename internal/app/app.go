// Package app wires the services of the API server, the worker and the CLI
// from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"staffattend/internal/attendance"
	"staffattend/internal/config"
	"staffattend/internal/employee"
	"staffattend/internal/faceclient"
	"staffattend/internal/gallery"
	"staffattend/internal/httpmiddleware"
	"staffattend/internal/queue"
	"staffattend/internal/report"
	"staffattend/internal/store"
)

const galleryVersionKey = "staffattend:gallery:version"

// App holds the long-lived dependencies of a process.
type App struct {
	Config config.App
	Log    *zap.Logger

	DB    *store.DB
	Redis *store.Redis
	Queue queue.Queue
	Face  *faceclient.Client

	Attendance *attendance.Service
	Employees  *employee.Service
	Reports    *report.Service
}

// New connects the configured backends. With STORE_BACKEND=memory no
// database is opened; without REDIS_ADDR the gallery version and rate
// limiter stay in-process.
func New(ctx context.Context, cfg config.App, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		Config: cfg,
		Log:    log,
		Redis:  store.NewRedis(cfg.RedisAddr),
		Face:   faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip),
	}
	loc := cfg.Location()
	lateAfter, err := attendance.ParseTimeOfDay(cfg.LateAfter)
	if err != nil {
		return nil, fmt.Errorf("LATE_AFTER: %w", err)
	}

	if cfg.QueueBackend == "redis" {
		a.Queue = queue.NewRedisQueue(a.Redis.Client, "")
	} else {
		a.Queue = queue.NewInMemory(64)
	}

	var version employee.Versioner = &gallery.MemoryVersion{}
	if a.Redis != nil {
		version = gallery.NewRedisVersion(a.Redis.Client, galleryVersionKey)
	}

	var (
		attRepo attendance.Repository
		empRepo employee.Repository
	)
	switch cfg.StoreBackend {
	case "memory":
		var emps *employee.MemoryRepository
		mem := attendance.NewMemoryRepository(
			attendance.WithMemoryClock(nil, loc),
			attendance.WithEmployeeCheck(func(ctx context.Context, id string) (bool, error) {
				return emps.Exists(ctx, id)
			}),
		)
		emps = employee.NewMemoryRepository(mem)
		attRepo, empRepo = mem, emps
		log.Warn("using in-memory store, data is lost on exit")
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.DB = db
		attRepo = attendance.NewRepository(db.Client, loc)
		empRepo = employee.NewRepository(db.Client)
	}

	a.Attendance = attendance.NewService(attRepo,
		attendance.WithLocation(loc),
		attendance.WithLogger(log.Named("attendance")),
	)
	a.Employees = employee.NewService(empRepo, version, queue.Jobs{Queue: a.Queue}, log.Named("employee"))
	a.Reports = report.NewService(a.Employees, a.Attendance, lateAfter)
	return a, nil
}

// Limiter returns the request limiter, or nil when rate limiting is off.
func (a *App) Limiter() httpmiddleware.Limiter {
	if a.Config.RateLimitPerMin == 0 {
		return nil
	}
	if a.Redis != nil {
		return httpmiddleware.NewRedisSlidingWindow(a.Redis.Client, a.Config.RateLimitPerMin)
	}
	return httpmiddleware.NewSimpleTokenBucket(a.Config.RateLimitPerMin, a.Config.RateLimitPerMin)
}

// Migrate applies the schema when a database is configured.
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return store.Migrate(ctx, a.DB.Client)
}

// Health reports the state of each configured backend.
func (a *App) Health(ctx context.Context) map[string]bool {
	out := map[string]bool{}
	if a.DB != nil {
		out["db"] = a.DB.Healthy(ctx)
	}
	if a.Redis != nil {
		out["redis"] = a.Redis.Healthy(ctx)
	}
	return out
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	return errors.Join(a.DB.Close(), a.Redis.Close())
}

// Package enroll consumes enroll jobs and refreshes employee descriptors.
package enroll

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"staffattend/internal/employee"
	"staffattend/internal/queue"
)

var jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "staffattend_enroll_jobs_total",
	Help: "Enroll jobs processed by result.",
}, []string{"result"})

// Enroller is the part of the employee service the worker drives.
type Enroller interface {
	Enroll(ctx context.Context, code string, ex employee.Extractor) error
}

// Worker runs enroll jobs from a queue one at a time.
type Worker struct {
	queue    queue.Queue
	enroller Enroller
	face     employee.Extractor
	timeout  time.Duration
	log      *zap.Logger
}

// NewWorker consumes enroll jobs from q and extracts descriptors with face.
func NewWorker(q queue.Queue, enroller Enroller, face employee.Extractor, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{queue: q, enroller: enroller, face: face, timeout: time.Minute, log: log}
}

// Run blocks until ctx is done or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.queue.Consume(ctx)
	if err != nil {
		return err
	}
	w.log.Info("enroll worker started")
	for msg := range messages {
		w.Handle(ctx, msg)
	}
	w.log.Info("enroll worker stopped")
	return nil
}

// Handle processes a single message. Unknown and malformed messages are
// logged and dropped.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) {
	job, err := queue.DecodeEnroll(msg)
	if err != nil {
		jobsTotal.WithLabelValues("invalid").Inc()
		w.log.Warn("dropping message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	switch err := w.enroller.Enroll(jobCtx, job.EmployeeCode, w.face); {
	case err == nil:
		jobsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, employee.ErrNotFound):
		jobsTotal.WithLabelValues("gone").Inc()
		w.log.Info("employee removed before enrollment", zap.String("code", job.EmployeeCode))
	default:
		jobsTotal.WithLabelValues("failed").Inc()
		w.log.Error("enroll failed", zap.String("code", job.EmployeeCode), zap.Error(err))
	}
}

package worker

import (
	"context"
	"time"

	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-escalation-service/internal/observability"
	"github.com/spec-kit/sla-escalation-service/internal/service"
)

const leaseReleaseTimeout = 5 * time.Second

// Escalator runs one escalation pass.
type Escalator interface {
	Escalate(ctx context.Context) (service.PassResult, error)
}

// Lease serializes passes across replicas.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// EscalationWorker runs the escalation pass on a fixed interval. A tick that
// fires while a pass is still running is dropped.
type EscalationWorker struct {
	cron      *cron.Cron
	job       cron.Job
	escalator Escalator
	lease     Lease
	interval  time.Duration
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// EscalationWorkerDependencies bundles the worker's collaborators. Lease is optional.
type EscalationWorkerDependencies struct {
	Escalator Escalator
	Lease     Lease
	Interval  time.Duration
	Logger    *zap.Logger
}

// NewEscalationWorker builds a stopped worker.
func NewEscalationWorker(deps EscalationWorkerDependencies) *EscalationWorker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := deps.Interval
	if interval < time.Second {
		interval = time.Second
	}
	cronLogger := zapr.NewLogger(logger.Named("scheduler"))

	ctx, cancel := context.WithCancel(context.Background())
	w := &EscalationWorker{
		escalator: deps.Escalator,
		lease:     deps.Lease,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		cron:      cron.New(cron.WithLogger(cronLogger)),
	}
	w.job = cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(w.runPass))
	return w
}

// Start schedules the pass and returns immediately.
func (w *EscalationWorker) Start() {
	w.cron.Schedule(cron.Every(w.interval), w.job)
	w.cron.Start()
	w.logger.Info("escalation scheduler started", zap.Duration("interval", w.interval), zap.Bool("lease", w.lease != nil))
}

// Stop prevents new passes and waits for a running one to finish or ctx to expire.
func (w *EscalationWorker) Stop(ctx context.Context) error {
	stopped := w.cron.Stop()
	defer w.cancel()
	select {
	case <-stopped.Done():
		w.logger.Info("escalation scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *EscalationWorker) runPass() {
	ctx := observability.WithCorrelationID(w.ctx, uuid.NewString())
	logger := observability.LoggerFor(ctx, w.logger)

	if w.lease != nil {
		acquired, err := w.lease.Acquire(ctx)
		if err != nil {
			logger.Warn("escalation lease unavailable, skipping pass", zap.Error(err))
			return
		}
		if !acquired {
			logger.Debug("escalation lease held by another instance, skipping pass")
			return
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaseReleaseTimeout)
			defer cancel()
			if err := w.lease.Release(releaseCtx); err != nil {
				logger.Warn("failed to release escalation lease", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	result, err := w.escalator.Escalate(ctx)
	if err != nil {
		return
	}
	logger.Debug("scheduled escalation pass finished",
		zap.Int("evaluated", result.Evaluated),
		zap.Int("alerts", result.Alerts),
		zap.Int("breaches", result.Breaches),
		zap.Duration("latency", time.Since(start)))
}

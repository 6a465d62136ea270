package worker

import (
	"context"
	"sync"
	"time"

	"netmon-dashboard/internal/reports"
	"netmon-dashboard/internal/session"
	"netmon-dashboard/pkg/config"
	"netmon-dashboard/pkg/logger"
)

// Runner is the orchestrator side of the background jobs
type Runner interface {
	RunAlertSync(ctx context.Context) error
	RunSessionCheck(ctx context.Context) (session.TokenState, error)
	RunReportExport(ctx context.Context, period reports.Period, format reports.Format) (string, error)
	RunReportCleanup(ctx context.Context) (int, error)
	ReportsEnabled() bool
}

type job struct {
	name       string
	interval   time.Duration
	timeout    time.Duration
	runOnStart bool
	run        func(ctx context.Context) error
}

type WorkerPool struct {
	config *config.Config
	runner Runner
	jobs   []job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorkerPool(cfg *config.Config, runner Runner) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	wp := &WorkerPool{
		config: cfg,
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
	}

	wp.jobs = []job{
		{
			name:       "alert sync",
			interval:   cfg.AlertSyncInterval,
			timeout:    30 * time.Second,
			runOnStart: true,
			run:        runner.RunAlertSync,
		},
		{
			name:       "session watcher",
			interval:   cfg.SessionCheckInterval,
			timeout:    30 * time.Second,
			runOnStart: true,
			run:        wp.checkSession,
		},
	}
	if runner.ReportsEnabled() {
		wp.jobs = append(wp.jobs, job{
			name:     "report export",
			interval: cfg.ReportInterval,
			timeout:  5 * time.Minute,
			run:      wp.exportReports,
		})
	}

	return wp
}

func (wp *WorkerPool) Start() {
	logger.Info("Starting worker pool", logger.Int("jobs", len(wp.jobs)))

	for _, j := range wp.jobs {
		wp.wg.Add(1)
		go wp.schedule(j)
	}
}

func (wp *WorkerPool) Stop() {
	logger.Info("Stopping worker pool...")
	wp.cancel()
	wp.wg.Wait()
	logger.Info("Worker pool stopped")
}

func (wp *WorkerPool) schedule(j job) {
	defer wp.wg.Done()

	logger.Info("Job scheduler started", logger.String("job", j.name), logger.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	if j.runOnStart {
		wp.runOnce(j)
	}

	for {
		select {
		case <-wp.ctx.Done():
			logger.Info("Job scheduler stopped", logger.String("job", j.name))
			return
		case <-ticker.C:
			wp.runOnce(j)
		}
	}
}

func (wp *WorkerPool) runOnce(j job) {
	ctx, cancel := context.WithTimeout(wp.ctx, j.timeout)
	defer cancel()
	if err := j.run(ctx); err != nil {
		logger.Error("Job failed", logger.String("job", j.name), logger.Err(err))
	}
}

func (wp *WorkerPool) checkSession(ctx context.Context) error {
	state, err := wp.runner.RunSessionCheck(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Session checked", logger.String("token", state.String()))
	return nil
}

func (wp *WorkerPool) exportReports(ctx context.Context) error {
	format, err := reports.ParseFormat(wp.config.ReportFormat)
	if err != nil {
		return err
	}
	if _, err := wp.runner.RunReportExport(ctx, reports.Daily, format); err != nil {
		return err
	}

	removed, err := wp.runner.RunReportCleanup(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.Info("Old reports removed", logger.Int("count", removed))
	}
	return nil
}

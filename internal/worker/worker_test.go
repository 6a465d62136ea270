package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"netmon-dashboard/internal/reports"
	"netmon-dashboard/internal/session"
	"netmon-dashboard/pkg/config"
)

type fakeRunner struct {
	reports  bool
	syncs    atomic.Int32
	checks   atomic.Int32
	exports  atomic.Int32
	cleanups atomic.Int32
	period   atomic.Value
}

func (r *fakeRunner) RunAlertSync(context.Context) error {
	r.syncs.Add(1)
	return errors.New("backend down")
}

func (r *fakeRunner) RunSessionCheck(context.Context) (session.TokenState, error) {
	r.checks.Add(1)
	return session.TokenValid, nil
}

func (r *fakeRunner) RunReportExport(_ context.Context, p reports.Period, _ reports.Format) (string, error) {
	r.period.Store(p)
	r.exports.Add(1)
	return "reports/daily/x.json.gz", nil
}

func (r *fakeRunner) RunReportCleanup(context.Context) (int, error) {
	r.cleanups.Add(1)
	return 1, nil
}

func (r *fakeRunner) ReportsEnabled() bool { return r.reports }

func testConfig() *config.Config {
	return &config.Config{
		AlertSyncInterval:    10 * time.Millisecond,
		SessionCheckInterval: 10 * time.Millisecond,
		ReportInterval:       10 * time.Millisecond,
		ReportFormat:         "csv",
	}
}

func TestWorkerPoolRunsJobsUntilStopped(t *testing.T) {
	r := &fakeRunner{reports: true}
	wp := NewWorkerPool(testConfig(), r)
	wp.Start()

	assert.Eventually(t, func() bool {
		return r.syncs.Load() >= 3 && r.checks.Load() >= 3 && r.exports.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	wp.Stop()
	syncs := r.syncs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, syncs, r.syncs.Load())
	assert.Equal(t, reports.Daily, r.period.Load())
	assert.GreaterOrEqual(t, r.cleanups.Load(), int32(1))
}

func TestWorkerPoolSkipsReportsWhenDisabled(t *testing.T) {
	r := &fakeRunner{}
	wp := NewWorkerPool(testConfig(), r)
	assert.Len(t, wp.jobs, 2)

	wp.Start()
	assert.Eventually(t, func() bool { return r.checks.Load() >= 1 }, time.Second, 5*time.Millisecond)
	wp.Stop()
	assert.Equal(t, int32(0), r.exports.Load())
}

// Package monitoring ties the session store, the poller and the backend
// client together into the operations the local API and the CLI expose.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"netmon-dashboard/internal/backend"
	"netmon-dashboard/internal/notify"
	"netmon-dashboard/internal/poller"
	"netmon-dashboard/internal/realtime"
	"netmon-dashboard/internal/reports"
	"netmon-dashboard/internal/session"
	"netmon-dashboard/internal/storage"
	"netmon-dashboard/pkg/config"
	"netmon-dashboard/pkg/logger"
	"netmon-dashboard/pkg/models"
)

// ErrReportsDisabled is returned by report operations when no object
// storage is configured
var ErrReportsDisabled = errors.New("monitoring: report export is not configured")

// Backend is the subset of the REST client the orchestrator drives
type Backend interface {
	poller.Source

	Health(ctx context.Context) error
	Login(ctx context.Context, username, password string) (models.Credentials, error)
	Register(ctx context.Context, req backend.RegisterRequest) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
	Me(ctx context.Context) (*models.User, error)

	CreateDevice(ctx context.Context, d models.NewDevice) (models.Device, error)
	UpdateDevice(ctx context.Context, id string, patch models.DevicePatch) (*models.Device, error)
	DeleteDevice(ctx context.Context, id string) error

	ListAlerts(ctx context.Context, q backend.AlertQuery) ([]models.Alert, error)
	CheckAlerts(ctx context.Context) ([]models.Device, error)
	ResolveAlert(ctx context.Context, id string) error

	AdvancedScan(ctx context.Context, subnet string, timeoutSeconds int) (models.ScanResult, error)
}

type Deps struct {
	Config   *config.Config
	Backend  Backend
	Store    *session.Store
	KV       storage.KV
	Hub      *realtime.Hub
	Notifier *notify.Notifier
	// Exporter is nil when object storage is not configured
	Exporter *reports.Exporter
	// Probes are the health checks of the wired infrastructure, by name
	Probes map[string]func(ctx context.Context) error
}

type Orchestrator struct {
	config   *config.Config
	backend  Backend
	store    *session.Store
	kv       storage.KV
	hub      *realtime.Hub
	notifier *notify.Notifier
	exporter *reports.Exporter
	probes   map[string]func(ctx context.Context) error
	log      *zap.Logger
	now      func() time.Time

	poller        *poller.Poller
	deviceManager *DeviceManager
	alertManager  *AlertManager
	liveTracker   *LiveTracker

	mu      sync.Mutex
	baseCtx context.Context
}

func NewOrchestrator(d Deps) *Orchestrator {
	o := &Orchestrator{
		config:   d.Config,
		backend:  d.Backend,
		store:    d.Store,
		kv:       d.KV,
		hub:      d.Hub,
		notifier: d.Notifier,
		exporter: d.Exporter,
		probes:   d.Probes,
		log:      logger.Named("monitoring"),
		now:      time.Now,
		baseCtx:  context.Background(),
	}

	o.deviceManager = NewDeviceManager(o)
	o.alertManager = NewAlertManager(o)
	o.liveTracker = NewLiveTracker(d.Config.LiveSeriesCapacity, d.Config.SnapshotSeriesCapacity)
	o.poller = poller.New(d.Backend, o, poller.Options{
		Interval: d.Config.PollInterval,
		Ready:    d.Store.Authenticated,
	})

	return o
}

// GetStore returns the session store
func (o *Orchestrator) GetStore() *session.Store {
	return o.store
}

// GetDeviceManager returns the device manager
func (o *Orchestrator) GetDeviceManager() *DeviceManager {
	return o.deviceManager
}

// GetAlertManager returns the alert manager
func (o *Orchestrator) GetAlertManager() *AlertManager {
	return o.alertManager
}

// GetLiveTracker returns the live chart tracker
func (o *Orchestrator) GetLiveTracker() *LiveTracker {
	return o.liveTracker
}

// GetPoller returns the polling controller
func (o *Orchestrator) GetPoller() *poller.Poller {
	return o.poller
}

// GetHub returns the realtime hub
func (o *Orchestrator) GetHub() *realtime.Hub {
	return o.hub
}

// GetConfig returns config
func (o *Orchestrator) GetConfig() *config.Config {
	return o.config
}

// CheckHealth runs the backend probe and every infrastructure probe. The
// map holds "ok" or the failure message per component.
func (o *Orchestrator) CheckHealth(ctx context.Context) (bool, map[string]string) {
	results := make(map[string]string, len(o.probes)+1)
	healthy := true

	check := func(name string, probe func(ctx context.Context) error) {
		if err := probe(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			return
		}
		results[name] = "ok"
	}

	check("backend", o.backend.Health)
	for name, probe := range o.probes {
		check(name, probe)
	}
	return healthy, results
}

// ReportsEnabled reports whether an exporter is wired
func (o *Orchestrator) ReportsEnabled() bool {
	return o.exporter != nil
}

// Start remembers ctx as the lifetime of background polling and enters
// Polling. Cycles are skipped while no session is established.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.baseCtx = ctx
	o.mu.Unlock()
	o.StartPolling()
}

// StartPolling enters Polling under the context given to Start
func (o *Orchestrator) StartPolling() bool {
	o.mu.Lock()
	ctx := o.baseCtx
	o.mu.Unlock()

	started := o.poller.Start(ctx)
	if started {
		o.broadcastPollerState()
	}
	return started
}

// StopPolling returns to Idle. A cycle in flight still completes and is
// applied.
func (o *Orchestrator) StopPolling() bool {
	stopped := o.poller.Stop()
	if stopped {
		o.broadcastPollerState()
	}
	return stopped
}

func (o *Orchestrator) broadcastPollerState() {
	o.hub.Broadcast(realtime.EventPollerState, o.poller.Status())
}

// RunRefresh performs one refresh cycle on demand, sharing a cycle that is
// already in flight
func (o *Orchestrator) RunRefresh(ctx context.Context) (poller.Result, error) {
	if !o.store.Authenticated() {
		return poller.Result{}, backend.ErrUnauthorized
	}
	return o.poller.Refresh(ctx)
}

// Apply stores a refresh cycle result. The poller calls it in sequence
// order only.
func (o *Orchestrator) Apply(res poller.Result) {
	o.store.SetDevices(res.Devices)
	o.store.SetStats(res.Stats)
	o.liveTracker.Record(res)
	o.deviceManager.Observe(res.Devices)

	for _, w := range res.Warnings {
		o.log.Warn("Refresh step failed", logger.Uint64("seq", res.Seq), logger.String("warning", w))
	}

	o.hub.Broadcast(realtime.EventRefresh, map[string]any{
		"seq":     res.Seq,
		"stats":   res.Stats,
		"devices": len(res.Devices),
		"live":    o.liveTracker.View(),
	})
}

// RunAlertSync re-fetches alerts and re-evaluates system health
func (o *Orchestrator) RunAlertSync(ctx context.Context) error {
	if !o.store.Authenticated() {
		return nil
	}
	if _, err := o.alertManager.Sync(ctx); err != nil {
		o.log.Error("Error syncing alerts", logger.Err(err))
		return err
	}
	return nil
}

// RunSessionCheck refreshes or drops the access token depending on its
// expiry. Opaque tokens are left alone.
func (o *Orchestrator) RunSessionCheck(ctx context.Context) (session.TokenState, error) {
	state := o.store.CheckToken(o.now(), o.config.TokenRefreshWindow)
	switch state {
	case session.TokenExpiring, session.TokenExpired:
	default:
		return state, nil
	}

	refreshToken := o.store.RefreshToken()
	if refreshToken == "" {
		if state == session.TokenExpired {
			o.log.Info("Access token expired without refresh token, logging out")
			return state, o.Logout(ctx)
		}
		return state, nil
	}

	creds, err := o.backend.Refresh(ctx, refreshToken)
	if err != nil {
		o.log.Warn("Token refresh failed, logging out", logger.Err(err))
		return state, multierr.Append(fmt.Errorf("failed to refresh token: %w", err), o.Logout(ctx))
	}
	if err := o.store.Establish(ctx, creds); err != nil {
		return state, err
	}
	o.log.Info("Access token refreshed")
	return state, nil
}

// RunReportExport builds and exports a report for period
func (o *Orchestrator) RunReportExport(ctx context.Context, period reports.Period, format reports.Format) (string, error) {
	if o.exporter == nil {
		return "", ErrReportsDisabled
	}
	r := o.BuildReport(period)
	name, err := o.exporter.Export(ctx, r, format)
	if err != nil {
		return "", fmt.Errorf("failed to export %s report: %w", period, err)
	}
	if err := o.notifier.ReportExported(string(period), name); err != nil {
		o.log.Warn("Failed to publish report event", logger.Err(err))
	}
	return name, nil
}

// RunReportCleanup prunes reports past the retention window
func (o *Orchestrator) RunReportCleanup(ctx context.Context) (int, error) {
	if o.exporter == nil {
		return 0, nil
	}
	return o.exporter.Prune(ctx, o.now())
}

// BuildReport summarizes the current state without exporting it
func (o *Orchestrator) BuildReport(period reports.Period) reports.Report {
	return reports.Build(period, o.store.Devices(), o.store.Alerts(), o.liveTracker.Network(), o.now())
}

// ListReports lists exported reports of period, or all periods when empty
func (o *Orchestrator) ListReports(ctx context.Context, period string) ([]ReportObject, error) {
	if o.exporter == nil {
		return nil, ErrReportsDisabled
	}
	objects, err := o.exporter.List(ctx, period)
	if err != nil {
		return nil, err
	}
	out := make([]ReportObject, 0, len(objects))
	for _, obj := range objects {
		out = append(out, ReportObject{Name: obj.Name, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}

// DownloadReport returns the decompressed body of an exported report
func (o *Orchestrator) DownloadReport(ctx context.Context, name string) ([]byte, error) {
	if o.exporter == nil {
		return nil, ErrReportsDisabled
	}
	return o.exporter.Download(ctx, name)
}

type ReportObject struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Close flushes pending notifications and releases the client storage
func (o *Orchestrator) Close() error {
	o.poller.Stop()
	o.poller.Wait()

	var err error
	if o.notifier != nil {
		err = multierr.Append(err, o.notifier.Close())
	}
	if o.kv != nil {
		err = multierr.Append(err, o.kv.Close())
	}
	return err
}

package monitoring

import (
	"context"
	"sync"

	"netmon-dashboard/internal/alerts"
	"netmon-dashboard/internal/backend"
	"netmon-dashboard/internal/realtime"
	"netmon-dashboard/internal/session"
	"netmon-dashboard/pkg/logger"
	"netmon-dashboard/pkg/models"
)

// AlertManager keeps the store's alert list in line with the backend and
// tracks the system health derived from it
type AlertManager struct {
	orchestrator *Orchestrator

	mu       sync.Mutex
	health   models.Health
	assessed bool
}

// AlertSummary is the classifier's view over the cached alerts
type AlertSummary struct {
	Health models.Health         `json:"health"`
	Counts alerts.SeverityCounts `json:"counts"`
	Recent []AlertItem           `json:"recent"`
}

// AlertItem is an alert with its display age
type AlertItem struct {
	models.Alert
	Age string `json:"age"`
}

func NewAlertManager(o *Orchestrator) *AlertManager {
	return &AlertManager{orchestrator: o, health: models.HealthHealthy}
}

// Sync replaces the cached alerts with the backend's most recent ones and
// re-evaluates health
func (am *AlertManager) Sync(ctx context.Context) (AlertSummary, error) {
	list, err := am.orchestrator.backend.ListAlerts(ctx, backend.AlertQuery{Limit: session.MaxAlerts})
	if err != nil {
		return AlertSummary{}, err
	}
	am.orchestrator.store.SetAlerts(list)
	return am.evaluate(), nil
}

// Check asks the backend to evaluate its alert rules now, then syncs
func (am *AlertManager) Check(ctx context.Context) (AlertSummary, error) {
	devices, err := am.orchestrator.backend.CheckAlerts(ctx)
	if err != nil {
		return AlertSummary{}, err
	}
	if len(devices) > 0 {
		am.orchestrator.store.SetDevices(devices)
	}
	return am.Sync(ctx)
}

// Resolve resolves an alert remotely and drops it from the cached list
// without re-fetching
func (am *AlertManager) Resolve(ctx context.Context, id string) (AlertSummary, error) {
	if err := am.orchestrator.backend.ResolveAlert(ctx, id); err != nil {
		return AlertSummary{}, err
	}
	am.orchestrator.store.RemoveAlert(id)
	logger.Info("Alert resolved", logger.String("alert_id", id))
	return am.evaluate(), nil
}

// List filters the cached alerts by level and bounds the result to limit
// when positive
func (am *AlertManager) List(filter string, limit int) ([]AlertItem, error) {
	f, err := alerts.ParseFilter(filter)
	if err != nil {
		return nil, &backend.ValidationError{Field: "level", Message: "must be one of all, CRITICAL, WARNING, INFO"}
	}
	list := alerts.FilterByLevel(am.orchestrator.store.Alerts(), f)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return am.items(list), nil
}

// Summary classifies the cached alerts without contacting the backend
func (am *AlertManager) Summary() AlertSummary {
	list := am.orchestrator.store.Alerts()
	return AlertSummary{
		Health: alerts.ClassifySystemHealth(list),
		Counts: alerts.Count(list),
		Recent: am.items(alerts.Recent(list, alerts.RecentLimit)),
	}
}

// Health is the last evaluated system health
func (am *AlertManager) Health() models.Health {
	am.mu.Lock()
	defer am.mu.Unlock()
	return am.health
}

func (am *AlertManager) Reset() {
	am.mu.Lock()
	am.health = models.HealthHealthy
	am.assessed = false
	am.mu.Unlock()
}

func (am *AlertManager) evaluate() AlertSummary {
	summary := am.Summary()

	am.mu.Lock()
	previous, assessed := am.health, am.assessed
	am.health, am.assessed = summary.Health, true
	am.mu.Unlock()

	if assessed && previous != summary.Health {
		logger.Info("System health changed",
			logger.String("previous", string(previous)),
			logger.String("current", string(summary.Health)),
		)
		if err := am.orchestrator.notifier.HealthChanged(previous, summary.Health, summary.Counts.Critical, summary.Counts.Warning); err != nil {
			logger.Warn("Failed to publish health transition", logger.Err(err))
		}
		am.orchestrator.hub.Broadcast(realtime.EventHealth, map[string]any{
			"previous": previous,
			"current":  summary.Health,
		})
	}
	am.orchestrator.hub.Broadcast(realtime.EventAlerts, summary)
	return summary
}

func (am *AlertManager) items(list []models.Alert) []AlertItem {
	now := am.orchestrator.now()
	out := make([]AlertItem, 0, len(list))
	for _, a := range list {
		out = append(out, AlertItem{Alert: a, Age: alerts.RelativeAge(a.Timestamp, now)})
	}
	return out
}


package monitoring

import (
	"time"

	"netmon-dashboard/internal/aggregate"
	"netmon-dashboard/internal/poller"
	"netmon-dashboard/pkg/models"
)

// Dashboard is the payload of the dashboard view
type Dashboard struct {
	Stats            models.DeviceStats   `json:"stats"`
	Distribution     []aggregate.Bucket   `json:"distribution"`
	AvgLatency       string               `json:"avg_latency"`
	AvgPacketLoss    string               `json:"avg_packet_loss"`
	HourlyLatency    []models.SeriesPoint `json:"hourly_latency"`
	HourlyPacketLoss []models.SeriesPoint `json:"hourly_packet_loss"`
	Alerts           AlertSummary         `json:"alerts"`
	Poller           poller.Status        `json:"poller"`
	LastError        string               `json:"last_error,omitempty"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// Dashboard derives the dashboard view from the cached state. Stats are
// recomputed from the device list so manual mutations show up before the
// next poll.
func (o *Orchestrator) Dashboard() Dashboard {
	now := o.now()
	devices := o.store.Devices()
	stats := aggregate.ComputeDeviceStats(devices)
	latency, loss := o.liveTracker.Hourly(now, stats)

	avgLatency, avgLoss := "N/A", "N/A"
	if len(devices) > 0 {
		avgLatency = aggregate.FormatLatency(&stats.AvgLatency)
		avgLoss = aggregate.FormatPacketLoss(&stats.AvgPacketLoss)
	}

	return Dashboard{
		Stats:            stats,
		Distribution:     aggregate.StatusDistribution(stats),
		AvgLatency:       avgLatency,
		AvgPacketLoss:    avgLoss,
		HourlyLatency:    latency,
		HourlyPacketLoss: loss,
		Alerts:           o.alertManager.Summary(),
		Poller:           o.poller.Status(),
		LastError:        o.store.LastError(),
		GeneratedAt:      now,
	}
}

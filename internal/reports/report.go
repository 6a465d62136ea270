// Package reports builds period summaries of the dashboard state and
// exports them to object storage.
package reports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"netmon-dashboard/internal/aggregate"
	"netmon-dashboard/internal/alerts"
	"netmon-dashboard/pkg/models"
)

type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// ParsePeriod accepts daily, weekly or monthly in any case
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Daily, Weekly, Monthly:
		return p, nil
	}
	return "", fmt.Errorf("unknown report period %q", s)
}

// Window returns the time span a report generated at now covers
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	switch p {
	case Weekly:
		return now.AddDate(0, 0, -7), now
	case Monthly:
		return now.AddDate(0, -1, 0), now
	default:
		return now.AddDate(0, 0, -1), now
	}
}

// DeviceRow is one device line of a report
type DeviceRow struct {
	ID         string `json:"id" csv:"id"`
	Name       string `json:"name" csv:"name"`
	IP         string `json:"ip" csv:"ip"`
	Type       string `json:"device_type" csv:"device_type"`
	Status     string `json:"status" csv:"status"`
	Latency    string `json:"latency" csv:"latency"`
	PacketLoss string `json:"packet_loss" csv:"packet_loss"`
}

type Report struct {
	Period       Period                `json:"period"`
	GeneratedAt  time.Time             `json:"generated_at"`
	WindowStart  time.Time             `json:"window_start"`
	WindowEnd    time.Time             `json:"window_end"`
	Stats        models.DeviceStats    `json:"stats"`
	Distribution []aggregate.Bucket    `json:"distribution"`
	Alerts       alerts.SeverityCounts `json:"alerts"`
	AlertsRaised int                   `json:"alerts_raised"`
	Health       models.Health         `json:"health"`
	Quality      *aggregate.Quality    `json:"network_quality,omitempty"`
	Devices      []DeviceRow           `json:"devices"`
	TopAlerts    []models.Alert        `json:"top_alerts"`
}

// TopAlertsLimit bounds the alert list embedded in a report
const TopAlertsLimit = 20

// Build summarizes the current devices and the alerts raised within the
// period window. Health and severity counts consider every unresolved
// alert; AlertsRaised and TopAlerts only those inside the window.
func Build(period Period, devices []models.Device, alertList []models.Alert, network *models.NetworkStatus, now time.Time) Report {
	start, end := period.Window(now)
	stats := aggregate.ComputeDeviceStats(devices)

	r := Report{
		Period:       period,
		GeneratedAt:  now,
		WindowStart:  start,
		WindowEnd:    end,
		Stats:        stats,
		Distribution: aggregate.StatusDistribution(stats),
		Alerts:       alerts.Count(alertList),
		Health:       alerts.ClassifySystemHealth(alertList),
		Devices:      make([]DeviceRow, 0, len(devices)),
		TopAlerts:    []models.Alert{},
	}
	if network != nil {
		q := aggregate.NetworkQuality(network.Jitter, stats.AvgPacketLoss)
		r.Quality = &q
	}

	for _, d := range devices {
		r.Devices = append(r.Devices, DeviceRow{
			ID:         d.ID,
			Name:       d.Name,
			IP:         d.IP,
			Type:       string(d.DeviceType),
			Status:     string(d.Status),
			Latency:    aggregate.FormatLatency(d.LatencyMs),
			PacketLoss: aggregate.FormatPacketLoss(d.PacketLossPercent),
		})
	}

	var inWindow []models.Alert
	for _, a := range alertList {
		if !a.Timestamp.Before(start) && !a.Timestamp.After(end) {
			inWindow = append(inWindow, a)
		}
	}
	r.AlertsRaised = len(inWindow)
	sort.SliceStable(inWindow, func(i, j int) bool {
		ri, rj := severityRank(inWindow[i].Level), severityRank(inWindow[j].Level)
		if ri != rj {
			return ri > rj
		}
		return inWindow[i].Timestamp.After(inWindow[j].Timestamp)
	})
	if len(inWindow) > TopAlertsLimit {
		inWindow = inWindow[:TopAlertsLimit]
	}
	r.TopAlerts = append(r.TopAlerts, inWindow...)
	return r
}

func severityRank(l models.AlertLevel) int {
	switch models.AlertLevel(strings.ToUpper(string(l))) {
	case models.LevelCritical:
		return 2
	case models.LevelWarning:
		return 1
	}
	return 0
}

// Package notify publishes dashboard events (health transitions, device
// state changes, session activity, report exports) to external consumers.
package notify

import (
	"time"

	"netmon-dashboard/pkg/models"
)

type EventType string

const (
	EventHealthChanged  EventType = "health_changed"
	EventDeviceDown     EventType = "device_down"
	EventDeviceUp       EventType = "device_up"
	EventSessionLogin   EventType = "session_login"
	EventSessionLogout  EventType = "session_logout"
	EventReportExported EventType = "report_exported"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is one notification
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	Source     string         `json:"source"`
	SourceHost string         `json:"source_host,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// HealthSeverity maps a system-health level onto an event severity
func HealthSeverity(h models.Health) Severity {
	switch h {
	case models.HealthCritical:
		return SeverityCritical
	case models.HealthWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

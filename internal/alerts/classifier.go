// Package alerts classifies an alert collection into counts, filtered views
// and an overall system-health level.
package alerts

import (
	"fmt"
	"strings"
	"time"

	"netmon-dashboard/pkg/models"
)

// FilterAll disables level filtering
const FilterAll = "all"

// RecentLimit is the number of alerts shown on the dashboard card
const RecentLimit = 5

// Active returns the unresolved alerts, preserving order.
func Active(alerts []models.Alert) []models.Alert {
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if !a.IsResolved {
			out = append(out, a)
		}
	}
	return out
}

// ClassifySystemHealth returns critical when any unresolved alert is
// CRITICAL, warning when any unresolved alert is WARNING and healthy
// otherwise. Resolved alerts never escalate health.
func ClassifySystemHealth(alerts []models.Alert) models.Health {
	health := models.HealthHealthy
	for _, a := range alerts {
		if a.IsResolved {
			continue
		}
		switch {
		case levelIs(a.Level, models.LevelCritical):
			return models.HealthCritical
		case levelIs(a.Level, models.LevelWarning):
			health = models.HealthWarning
		}
	}
	return health
}

// CountBySeverity counts unresolved alerts whose normalized level equals
// level, ignoring case.
func CountBySeverity(alerts []models.Alert, level models.AlertLevel) int {
	n := 0
	for _, a := range alerts {
		if !a.IsResolved && levelIs(a.Level, level) {
			n++
		}
	}
	return n
}

// SeverityCounts is the per-level tally of unresolved alerts
type SeverityCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Count tallies unresolved alerts for every level in one pass.
func Count(alerts []models.Alert) SeverityCounts {
	var c SeverityCounts
	for _, a := range alerts {
		if a.IsResolved {
			continue
		}
		c.Total++
		switch {
		case levelIs(a.Level, models.LevelCritical):
			c.Critical++
		case levelIs(a.Level, models.LevelWarning):
			c.Warning++
		case levelIs(a.Level, models.LevelInfo):
			c.Info++
		}
	}
	return c
}

// ParseFilter accepts "all" or a level name in any case. Unknown values are
// rejected.
func ParseFilter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, FilterAll) {
		return FilterAll, nil
	}
	up := strings.ToUpper(s)
	switch models.AlertLevel(up) {
	case models.LevelCritical, models.LevelWarning, models.LevelInfo:
		return up, nil
	}
	return "", fmt.Errorf("unknown alert level %q", s)
}

// FilterByLevel keeps alerts at the given level. FilterAll keeps everything.
func FilterByLevel(alerts []models.Alert, filter string) []models.Alert {
	if filter == "" || strings.EqualFold(filter, FilterAll) {
		out := make([]models.Alert, len(alerts))
		copy(out, alerts)
		return out
	}
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if levelIs(a.Level, models.AlertLevel(filter)) {
			out = append(out, a)
		}
	}
	return out
}

// Recent returns at most n alerts from the head of the list, which the store
// keeps newest first.
func Recent(alerts []models.Alert, n int) []models.Alert {
	if n < 0 {
		n = 0
	}
	if n > len(alerts) {
		n = len(alerts)
	}
	out := make([]models.Alert, n)
	copy(out, alerts[:n])
	return out
}

// RelativeAge buckets the time elapsed since ts into "now", minutes, hours
// or days. Elapsed time is floored. A timestamp in the future is reported
// as "now".
func RelativeAge(ts, now time.Time) string {
	elapsed := now.Sub(ts)
	if elapsed < time.Minute {
		return "now"
	}
	switch {
	case elapsed < time.Hour:
		return plural(int(elapsed/time.Minute), "minute")
	case elapsed < 24*time.Hour:
		return plural(int(elapsed/time.Hour), "hour")
	default:
		return plural(int(elapsed/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func levelIs(got, want models.AlertLevel) bool {
	return strings.EqualFold(string(got), string(want))
}

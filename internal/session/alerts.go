package session

import (
	"netmon-dashboard/pkg/models"
)

// Alerts returns a copy of the alert collection, newest first
func (s *Store) Alerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// SetAlerts replaces the collection, keeping at most MaxAlerts from the head
func (s *Store) SetAlerts(alerts []models.Alert) {
	n := min(len(alerts), MaxAlerts)
	cp := make([]models.Alert, n)
	copy(cp, alerts[:n])
	s.mu.Lock()
	s.alerts = cp
	s.mu.Unlock()
}

// AddAlert prepends a, dropping the oldest alert beyond MaxAlerts
func (s *Store) AddAlert(a models.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(len(s.alerts), MaxAlerts-1)
	out := make([]models.Alert, 0, n+1)
	out = append(out, a)
	s.alerts = append(out, s.alerts[:n]...)
}

// RemoveAlert drops the alert with the given id. Resolving an alert calls
// this once the backend accepts it, without re-fetching the list.
func (s *Store) RemoveAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts = append(s.alerts[:i:i], s.alerts[i+1:]...)
			return true
		}
	}
	return false
}

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon-dashboard/pkg/models"
)

type memTransport struct {
	mu      sync.Mutex
	events  []Event
	closed  bool
	sendErr error
}

func (m *memTransport) Send(_ context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return m.sendErr
}

func (m *memTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func TestNotifierDeliversOnClose(t *testing.T) {
	tr := &memTransport{}
	n := New("netmon-dashboard", tr)

	require.NoError(t, n.HealthChanged(models.HealthHealthy, models.HealthCritical, 2, 1))
	require.NoError(t, n.DeviceStatusChanged(models.Device{ID: "1", Name: "gw", IP: "10.0.0.1", Status: models.StatusDown}))
	require.NoError(t, n.Session(EventSessionLogin, "ops"))
	require.NoError(t, n.Close())

	require.Len(t, tr.events, 3)
	assert.True(t, tr.closed)

	health := tr.events[0]
	assert.Equal(t, EventHealthChanged, health.Type)
	assert.Equal(t, SeverityCritical, health.Severity)
	assert.Equal(t, "critical", health.Data["current"])
	assert.NotEmpty(t, health.ID)
	assert.Equal(t, "netmon-dashboard", health.Source)

	assert.Equal(t, EventDeviceDown, tr.events[1].Type)
	assert.Equal(t, SeverityWarning, tr.events[1].Severity)
}

func TestPublishAfterClose(t *testing.T) {
	n := New("test")
	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
	assert.ErrorIs(t, n.Publish(EventDeviceUp, SeverityInfo, "x", nil), ErrClosed)
}

func TestTransportErrorDoesNotStopOthers(t *testing.T) {
	bad := &memTransport{sendErr: errors.New("broker down")}
	good := &memTransport{}
	n := New("test", bad, good)
	require.NoError(t, n.ReportExported("daily", "reports/daily/x.json.gz"))
	require.NoError(t, n.Close())
	assert.Len(t, good.events, 1)
}

func TestHealthSeverity(t *testing.T) {
	assert.Equal(t, SeverityInfo, HealthSeverity(models.HealthHealthy))
	assert.Equal(t, SeverityWarning, HealthSeverity(models.HealthWarning))
	assert.Equal(t, SeverityCritical, HealthSeverity(models.HealthCritical))
}

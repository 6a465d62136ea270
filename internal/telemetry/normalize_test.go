package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon-dashboard/pkg/models"
)

func decode(t *testing.T, s string) RawRecord {
	t.Helper()
	var r RawRecord
	require.NoError(t, json.Unmarshal([]byte(s), &r))
	return r
}

func TestNormalizeDeviceStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want models.DeviceStatus
	}{
		{`{"status":"up"}`, models.StatusUp},
		{`{"status":"UP"}`, models.StatusUp},
		{`{"status":" Up "}`, models.StatusUp},
		{`{"status":"down"}`, models.StatusDown},
		{`{"status":"unknown"}`, models.StatusDown},
		{`{"status":null}`, models.StatusDown},
		{`{}`, models.StatusDown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeDevice(decode(t, tc.raw)).Status, tc.raw)
	}
}

func TestNormalizeDeviceKeepsNullDistinctFromZero(t *testing.T) {
	zero := NormalizeDevice(decode(t, `{"id":1,"latency_ms":0,"packet_loss_percent":0}`))
	require.NotNil(t, zero.LatencyMs)
	require.NotNil(t, zero.PacketLossPercent)
	assert.Equal(t, 0.0, *zero.LatencyMs)
	assert.Equal(t, 0.0, *zero.PacketLossPercent)

	null := NormalizeDevice(decode(t, `{"id":2,"latency_ms":null}`))
	assert.Nil(t, null.LatencyMs)
	assert.Nil(t, null.PacketLossPercent)
}

func TestNormalizeDeviceFallbacks(t *testing.T) {
	d := NormalizeDevice(decode(t, `{"ip_address":"10.0.0.7","latency":12.5,"packet_loss":140,"device_type":"Router"}`))
	assert.Equal(t, "10.0.0.7", d.ID)
	assert.Equal(t, "10.0.0.7", d.Name)
	assert.Equal(t, "10.0.0.7", d.IP)
	require.NotNil(t, d.LatencyMs)
	assert.Equal(t, 12.5, *d.LatencyMs)
	require.NotNil(t, d.PacketLossPercent)
	assert.Equal(t, 100.0, *d.PacketLossPercent)
	assert.Equal(t, models.TypeRouter, d.DeviceType)

	empty := NormalizeDevice(RawRecord{})
	assert.Equal(t, UnknownDeviceName, empty.Name)
	assert.Equal(t, models.TypeOther, empty.DeviceType)
	assert.Equal(t, models.StatusDown, empty.Status)
}

func TestNormalizeDeviceIntegerID(t *testing.T) {
	d := NormalizeDevice(decode(t, `{"id":42,"name":"core","ip_address":"10.0.0.1","device_type":"toaster","latency_ms":-3}`))
	assert.Equal(t, "42", d.ID)
	assert.Equal(t, models.TypeOther, d.DeviceType)
	assert.Nil(t, d.LatencyMs)
}

func TestNormalizeAlertLevel(t *testing.T) {
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		raw  string
		want models.AlertLevel
	}{
		{`{"severity":"critical"}`, models.LevelCritical},
		{`{"level":"warning"}`, models.LevelWarning},
		{`{"severity":"warning","level":"CRITICAL"}`, models.LevelWarning},
		{`{}`, models.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeAlert(decode(t, tc.raw), received).Level, tc.raw)
	}
}

func TestNormalizeAlertDeviceFallbacks(t *testing.T) {
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	nested := NormalizeAlert(decode(t, `{"id":7,"device":{"id":3,"name":"gw","ip_address":"10.0.0.1"},"device_name":"flat","device_ip":"10.9.9.9"}`), received)
	assert.Equal(t, "7", nested.ID)
	assert.Equal(t, "gw", nested.DeviceName)
	assert.Equal(t, "10.0.0.1", nested.DeviceIP)
	assert.Equal(t, "3", nested.DeviceID)

	flat := NormalizeAlert(decode(t, `{"device_name":"flat","device_ip":"10.9.9.9","device_id":4}`), received)
	assert.Equal(t, "flat", flat.DeviceName)
	assert.Equal(t, "10.9.9.9", flat.DeviceIP)
	assert.Equal(t, "4", flat.DeviceID)

	bare := NormalizeAlert(RawRecord{}, received)
	assert.Equal(t, UnknownDeviceName, bare.DeviceName)
	assert.Equal(t, UnknownDeviceIP, bare.DeviceIP)
	assert.Equal(t, DefaultAlertText, bare.Message)
	assert.Equal(t, UnknownMetric, bare.Metric)
	assert.Equal(t, received, bare.Timestamp)
	assert.False(t, bare.IsResolved)
}

func TestNormalizeAlertFields(t *testing.T) {
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NormalizeAlert(decode(t, `{
		"id": "a-1",
		"title": "High latency",
		"alert_type": "latency",
		"value": 320.5,
		"threshold": 200,
		"created_at": "2026-02-28T08:30:00",
		"is_resolved": 1
	}`), received)

	assert.Equal(t, "High latency", a.Message)
	assert.Equal(t, "latency", a.Metric)
	require.NotNil(t, a.Value)
	assert.Equal(t, 320.5, *a.Value)
	require.NotNil(t, a.Threshold)
	assert.Equal(t, 200.0, *a.Threshold)
	assert.Equal(t, time.Date(2026, 2, 28, 8, 30, 0, 0, time.UTC), a.Timestamp)
	assert.True(t, a.IsResolved)
}

func TestNormalizeUser(t *testing.T) {
	u := NormalizeUser(decode(t, `{"id":5,"username":"ops","email":"ops@example.com","role":"ADMIN"}`))
	require.NotNil(t, u)
	assert.Equal(t, int64(5), u.ID)
	assert.Equal(t, models.RoleAdmin, u.Role)

	assert.Equal(t, models.RoleViewer, NormalizeUser(decode(t, `{"role":"root"}`)).Role)
	assert.Nil(t, NormalizeUser(nil))
}

func TestRawRecordBool(t *testing.T) {
	r := decode(t, `{"a":1,"b":0,"c":true,"d":"1","e":"no"}`)
	assert.True(t, r.Bool("a"))
	assert.False(t, r.Bool("b"))
	assert.True(t, r.Bool("c"))
	assert.True(t, r.Bool("d"))
	assert.False(t, r.Bool("e"))
	assert.False(t, r.Bool("missing"))
}

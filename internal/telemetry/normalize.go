// Package telemetry maps loosely-shaped backend records onto the strict
// internal models. Every function here is pure: no I/O, no clock reads, and
// malformed input degrades to a documented default instead of an error.
package telemetry

import (
	"strings"
	"time"

	"netmon-dashboard/pkg/models"
)

// Fallback values used when a record lacks the corresponding field.
const (
	UnknownDeviceName = "Unknown"
	UnknownDeviceIP   = "N/A"
	DefaultAlertText  = "Alert"
	UnknownMetric     = "Unknown"
)

// NormalizeDevice maps a raw device record onto models.Device.
//
// Fallback rules:
//   - id: id, then ip_address, then ip
//   - ip: ip_address, then ip
//   - name: name, then hostname, then the ip, then "Unknown"
//   - status: "up" only when the raw status equals "up" ignoring case and
//     surrounding space; everything else (including absent) is "down"
//   - latency_ms: latency_ms, then latency; absent, null, non-numeric or
//     negative values stay nil
//   - packet_loss_percent: packet_loss_percent, then packet_loss; absent stays
//     nil, present values are clamped into [0,100]
//   - device_type: device_type, then type; unknown values become "other"
func NormalizeDevice(raw RawRecord) models.Device {
	ip, _ := raw.String("ip_address", "ip")

	id, ok := raw.ID("id")
	if !ok {
		id = ip
	}

	name, ok := raw.String("name", "hostname")
	if !ok {
		name = ip
	}
	if name == "" {
		name = UnknownDeviceName
	}

	status := models.StatusDown
	if s, ok := raw.String("status"); ok && strings.EqualFold(strings.TrimSpace(s), string(models.StatusUp)) {
		status = models.StatusUp
	}

	d := models.Device{
		ID:         id,
		Name:       name,
		IP:         ip,
		Status:     status,
		DeviceType: normalizeDeviceType(raw),
	}
	d.Description, _ = raw.String("description")
	d.MACAddress, _ = raw.String("mac_address")

	if v, ok := raw.Number("latency_ms", "latency"); ok && v >= 0 {
		d.LatencyMs = &v
	}
	if v, ok := raw.Number("packet_loss_percent", "packet_loss"); ok {
		v = clamp(v, 0, 100)
		d.PacketLossPercent = &v
	}
	return d
}

// NormalizeDevices maps a batch of raw devices, keeping order.
func NormalizeDevices(raws []RawRecord) []models.Device {
	out := make([]models.Device, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeDevice(r))
	}
	return out
}

func normalizeDeviceType(raw RawRecord) models.DeviceType {
	s, ok := raw.String("device_type", "type")
	if !ok {
		return models.TypeOther
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range models.DeviceTypes {
		if string(t) == s {
			return t
		}
	}
	return models.TypeOther
}

// NormalizeAlert maps a raw alert record onto models.Alert. received is used
// as the timestamp when the record carries none (or an unparseable one), which
// keeps the function deterministic for a given input pair.
//
// Fallback rules:
//   - level: uppercase(severity ?? level ?? "INFO")
//   - severity: lowercase of the same source value
//   - message: title, then message, then "Alert"
//   - device_name: device.name, then device_name, then "Unknown"
//   - device_ip: device.ip_address, then device_ip, then "N/A"
//   - device_id: device_id, then device.id
//   - metric: metric, then alert_type, then "Unknown"
//   - timestamp: timestamp, then created_at, then received
//   - is_resolved: false when absent
func NormalizeAlert(raw RawRecord, received time.Time) models.Alert {
	sev, ok := raw.String("severity", "level")
	if !ok {
		sev = string(models.LevelInfo)
	}
	sev = strings.TrimSpace(sev)

	a := models.Alert{
		Level:      models.AlertLevel(strings.ToUpper(sev)),
		Severity:   strings.ToLower(sev),
		Message:    DefaultAlertText,
		DeviceName: UnknownDeviceName,
		DeviceIP:   UnknownDeviceIP,
		Metric:     UnknownMetric,
		Timestamp:  received,
	}
	a.ID, _ = raw.ID("id")

	if s, ok := raw.String("title", "message"); ok {
		a.Message = s
	}
	if s, ok := raw.String("description", "message"); ok {
		a.Description = s
	}

	device := raw.Object("device")
	if s, ok := device.String("name"); ok {
		a.DeviceName = s
	} else if s, ok := raw.String("device_name"); ok {
		a.DeviceName = s
	}
	if s, ok := device.String("ip_address"); ok {
		a.DeviceIP = s
	} else if s, ok := raw.String("device_ip"); ok {
		a.DeviceIP = s
	}
	if id, ok := raw.ID("device_id"); ok {
		a.DeviceID = id
	} else if id, ok := device.ID("id"); ok {
		a.DeviceID = id
	}

	if s, ok := raw.String("metric", "alert_type"); ok {
		a.Metric = s
	}
	if v, ok := raw.Number("value"); ok {
		a.Value = &v
	}
	if v, ok := raw.Number("threshold"); ok {
		a.Threshold = &v
	}
	if ts, ok := raw.Time("timestamp", "created_at"); ok {
		a.Timestamp = ts
	}
	a.IsResolved = raw.Bool("is_resolved")
	return a
}

// NormalizeAlerts maps a batch of raw alerts, keeping order.
func NormalizeAlerts(raws []RawRecord, received time.Time) []models.Alert {
	out := make([]models.Alert, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeAlert(r, received))
	}
	return out
}

// NormalizeUser maps the user object of a login or /auth/me response.
// Unknown roles are downgraded to viewer.
func NormalizeUser(raw RawRecord) *models.User {
	if raw == nil {
		return nil
	}
	u := &models.User{Role: models.RoleViewer}
	if v, ok := raw.Number("id"); ok {
		u.ID = int64(v)
	}
	u.Username, _ = raw.String("username")
	u.Email, _ = raw.String("email")
	if r, ok := raw.String("role"); ok && strings.EqualFold(r, string(models.RoleAdmin)) {
		u.Role = models.RoleAdmin
	}
	return u
}

// NormalizeScannedDevice maps one entry of a subnet scan result.
func NormalizeScannedDevice(raw RawRecord) models.ScannedDevice {
	d := models.ScannedDevice{Status: string(models.StatusDown), DeviceType: "unknown"}
	d.IPAddress, _ = raw.String("ip_address", "ip")
	if s, ok := raw.String("status"); ok {
		d.Status = strings.ToLower(s)
	}
	if v, ok := raw.Number("latency_ms"); ok && v >= 0 {
		d.LatencyMs = &v
	}
	if s, ok := raw.String("device_type"); ok {
		d.DeviceType = s
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

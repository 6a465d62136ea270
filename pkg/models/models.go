package models

import "time"

// DeviceStatus is the derived liveness of a device. It is never tri-state.
type DeviceStatus string

const (
	StatusUp   DeviceStatus = "up"
	StatusDown DeviceStatus = "down"
)

// DeviceType classifies a monitored endpoint
type DeviceType string

const (
	TypeRouter   DeviceType = "router"
	TypeServer   DeviceType = "server"
	TypePC       DeviceType = "pc"
	TypeSwitch   DeviceType = "switch"
	TypePrinter  DeviceType = "printer"
	TypeFirewall DeviceType = "firewall"
	TypeNAS      DeviceType = "nas"
	TypeOther    DeviceType = "other"
)

// DeviceTypes lists every known device type in display order
var DeviceTypes = []DeviceType{
	TypeRouter, TypeServer, TypePC, TypeSwitch, TypePrinter, TypeFirewall, TypeNAS, TypeOther,
}

// Device represents a monitored network endpoint
type Device struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	IP                string       `json:"ip"`
	Description       string       `json:"description,omitempty"`
	Status            DeviceStatus `json:"status"`
	LatencyMs         *float64     `json:"latency_ms"`
	PacketLossPercent *float64     `json:"packet_loss_percent"`
	DeviceType        DeviceType   `json:"device_type"`
	MACAddress        string       `json:"mac_address,omitempty"`
}

// DevicePatch carries a partial device update. Nil fields are left untouched.
type DevicePatch struct {
	Name              *string       `json:"name,omitempty"`
	Description       *string       `json:"description,omitempty"`
	Status            *DeviceStatus `json:"status,omitempty"`
	LatencyMs         *float64      `json:"latency_ms,omitempty"`
	PacketLossPercent *float64      `json:"packet_loss_percent,omitempty"`
	DeviceType        *DeviceType   `json:"device_type,omitempty"`
	MACAddress        *string       `json:"mac_address,omitempty"`
	IsMonitored       *bool         `json:"is_monitored,omitempty"`
	IsCritical        *bool         `json:"is_critical,omitempty"`
}

// NewDevice is the payload for a manual device add
type NewDevice struct {
	Name       string     `json:"name"`
	IP         string     `json:"ip_address"`
	DeviceType DeviceType `json:"device_type"`
	MACAddress *string    `json:"mac_address"`
}

// AlertLevel is the normalized, uppercase alert severity
type AlertLevel string

const (
	LevelInfo     AlertLevel = "INFO"
	LevelWarning  AlertLevel = "WARNING"
	LevelCritical AlertLevel = "CRITICAL"
)

// Alert represents a notice that a device or metric crossed a threshold
type Alert struct {
	ID          string     `json:"id"`
	Level       AlertLevel `json:"level"`
	Severity    string     `json:"severity"`
	Message     string     `json:"message"`
	Description string     `json:"description,omitempty"`
	DeviceName  string     `json:"device_name"`
	DeviceIP    string     `json:"device_ip"`
	DeviceID    string     `json:"device_id,omitempty"`
	Metric      string     `json:"metric"`
	Value       *float64   `json:"value"`
	Threshold   *float64   `json:"threshold"`
	Timestamp   time.Time  `json:"timestamp"`
	IsResolved  bool       `json:"is_resolved"`
}

// Health is the overall system-health indicator derived from active alerts
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthWarning  Health = "warning"
	HealthCritical Health = "critical"
)

// Role of an authenticated user
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// User is the authenticated user profile
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Credentials returned by a successful login or token refresh
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// DeviceStats is the aggregate view over a device collection
type DeviceStats struct {
	Total         int     `json:"total"`
	UpCount       int     `json:"up_count"`
	DownCount     int     `json:"down_count"`
	WarningCount  int     `json:"warning_count"`
	Availability  float64 `json:"availability"`
	AvgLatency    float64 `json:"avg_latency"`
	AvgPacketLoss float64 `json:"avg_packet_loss"`
}

// SeriesPoint is one sample of a rolling chart series
type SeriesPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// Bandwidth in Mbps
type Bandwidth struct {
	Download float64 `json:"download"`
	Upload   float64 `json:"upload"`
}

// Segment is one subnet summary reported by the backend
type Segment struct {
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	Devices int     `json:"devices"`
	Latency float64 `json:"latency"`
}

// NetworkStatus is the live network snapshot served by /network/status
type NetworkStatus struct {
	Bandwidth Bandwidth `json:"bandwidth"`
	Jitter    float64   `json:"jitter"`
	DNS       float64   `json:"dns"`
	Segments  []Segment `json:"segments"`
}

// ScannedDevice is one live host discovered by a subnet scan
type ScannedDevice struct {
	IPAddress  string   `json:"ip_address"`
	Status     string   `json:"status"`
	LatencyMs  *float64 `json:"latency_ms"`
	DeviceType string   `json:"device_type"`
}

// ScanResult is the outcome of an advanced subnet scan
type ScanResult struct {
	Subnet          string          `json:"subnet"`
	TotalHosts      int             `json:"total_hosts"`
	DiscoveredCount int             `json:"discovered_count"`
	Devices         []ScannedDevice `json:"devices"`
	Message         string          `json:"message,omitempty"`
}

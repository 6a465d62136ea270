package backend

import (
	"context"
	"net/http"

	"netmon-dashboard/internal/telemetry"
	"netmon-dashboard/pkg/models"
)

// DefaultScanTimeout is the per-host ping timeout in seconds
const DefaultScanTimeout = 1

// NetworkStatus fetches the live bandwidth, jitter, DNS and segment snapshot
func (c *Client) NetworkStatus(ctx context.Context) (models.NetworkStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/network/status", nil)
	if err != nil {
		return models.NetworkStatus{}, err
	}

	var raw telemetry.RawRecord
	if err := decode(resp.Data(), &raw); err != nil {
		return models.NetworkStatus{}, err
	}
	return normalizeNetworkStatus(raw), nil
}

func normalizeNetworkStatus(raw telemetry.RawRecord) models.NetworkStatus {
	var st models.NetworkStatus
	bw := raw.Object("bandwidth")
	st.Bandwidth.Download, _ = bw.Number("download")
	st.Bandwidth.Upload, _ = bw.Number("upload")
	st.Jitter, _ = raw.Number("jitter")
	st.DNS, _ = raw.Number("dns")

	segments, _ := raw["segments"].([]any)
	for _, s := range segments {
		m, ok := s.(map[string]any)
		if !ok {
			continue
		}
		seg := telemetry.RawRecord(m)
		out := models.Segment{Status: "unknown"}
		out.Name, _ = seg.String("name")
		if v, ok := seg.String("status"); ok {
			out.Status = v
		}
		if n, ok := seg.Number("devices"); ok {
			out.Devices = int(n)
		}
		out.Latency, _ = seg.Number("latency")
		st.Segments = append(st.Segments, out)
	}
	return st
}

// AdvancedScan scans a subnet for live hosts. The CIDR is validated and
// ranges above MaxScanHosts are rejected before anything is sent.
func (c *Client) AdvancedScan(ctx context.Context, subnet string, timeoutSeconds int) (models.ScanResult, error) {
	prefix, hosts, err := ParseSubnet(subnet)
	if err != nil {
		return models.ScanResult{}, err
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultScanTimeout
	}

	resp, err := c.do(ctx, http.MethodPost, "/scan/advanced", map[string]any{
		"subnet":  prefix.String(),
		"timeout": timeoutSeconds,
	})
	if err != nil {
		return models.ScanResult{}, err
	}

	var raw telemetry.RawRecord
	if err := decode(resp.Data(), &raw); err != nil {
		return models.ScanResult{}, err
	}

	result := models.ScanResult{
		Subnet:     prefix.String(),
		TotalHosts: hosts,
		Message:    resp.Message(),
		Devices:    []models.ScannedDevice{},
	}
	if s, ok := raw.String("subnet"); ok {
		result.Subnet = s
	}
	if n, ok := raw.Number("total_hosts"); ok {
		result.TotalHosts = int(n)
	}
	devices, _ := raw["devices"].([]any)
	for _, d := range devices {
		if m, ok := d.(map[string]any); ok {
			result.Devices = append(result.Devices, telemetry.NormalizeScannedDevice(m))
		}
	}
	result.DiscoveredCount = len(result.Devices)
	if n, ok := raw.Number("discovered_count"); ok {
		result.DiscoveredCount = int(n)
	}
	return result, nil
}

// Package aggregate derives dashboard figures from the device collection.
package aggregate

import (
	"math"
	"strconv"

	"netmon-dashboard/pkg/models"
)

// Bucket is one slice of the status distribution chart
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ComputeDeviceStats derives availability, status counts and mean
// latency/packet loss from a device collection.
//
// Availability is up/total*100 rounded to one decimal and 0 for an empty
// collection. Means only consider devices that carry the field; a mean over
// an empty set is 0.
func ComputeDeviceStats(devices []models.Device) models.DeviceStats {
	stats := models.DeviceStats{Total: len(devices)}

	var latencySum, lossSum float64
	var latencyN, lossN int
	for _, d := range devices {
		switch d.Status {
		case models.StatusUp:
			stats.UpCount++
		case models.StatusDown:
			stats.DownCount++
		}
		if d.LatencyMs != nil {
			latencySum += *d.LatencyMs
			latencyN++
		}
		if d.PacketLossPercent != nil {
			lossSum += *d.PacketLossPercent
			lossN++
		}
	}

	stats.WarningCount = max(0, stats.Total-stats.UpCount-stats.DownCount)
	if stats.Total > 0 {
		stats.Availability = Round(float64(stats.UpCount)/float64(stats.Total)*100, 1)
	}
	stats.AvgLatency = Round(mean(latencySum, latencyN), 2)
	stats.AvgPacketLoss = Round(mean(lossSum, lossN), 2)
	return stats
}

// StatusDistribution returns the Up/Warning/Down buckets of the dashboard pie.
func StatusDistribution(stats models.DeviceStats) []Bucket {
	return []Bucket{
		{Name: "Up", Value: stats.UpCount},
		{Name: "Warning", Value: max(0, stats.Total-stats.UpCount-stats.DownCount)},
		{Name: "Down", Value: stats.DownCount},
	}
}

// MeanLatency is the unrounded mean latency over devices reporting one.
func MeanLatency(devices []models.Device) float64 {
	var sum float64
	var n int
	for _, d := range devices {
		if d.LatencyMs != nil {
			sum += *d.LatencyMs
			n++
		}
	}
	return mean(sum, n)
}

// MeanPacketLoss is the unrounded mean packet loss over devices reporting one.
func MeanPacketLoss(devices []models.Device) float64 {
	var sum float64
	var n int
	for _, d := range devices {
		if d.PacketLossPercent != nil {
			sum += *d.PacketLossPercent
			n++
		}
	}
	return mean(sum, n)
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// FormatLatency renders a latency for display. A missing value is "N/A",
// which is not the same as "0ms".
func FormatLatency(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "ms"
}

// FormatPacketLoss renders a packet-loss percentage for display.
func FormatPacketLoss(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

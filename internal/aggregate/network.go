package aggregate

import "math"

// Network quality thresholds
const (
	PoorJitterMs       = 30.0
	DegradedPacketLoss = 1.0
	BandwidthScaleMbps = 1000.0
)

// Quality is the badge shown next to the network performance card
type Quality struct {
	Status string `json:"status"`
	Label  string `json:"label"`
}

// NetworkQuality grades the link. Jitter dominates packet loss.
func NetworkQuality(jitterMs, avgPacketLoss float64) Quality {
	switch {
	case jitterMs > PoorJitterMs:
		return Quality{Status: "down", Label: "Poor"}
	case avgPacketLoss > DegradedPacketLoss:
		return Quality{Status: "warning", Label: "Good"}
	default:
		return Quality{Status: "up", Label: "Excellent"}
	}
}

// BandwidthPercent scales a download rate in Mbps onto a 0..100 gauge.
func BandwidthPercent(downloadMbps float64) float64 {
	return math.Max(0, math.Min(downloadMbps/BandwidthScaleMbps*100, 100))
}

package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon-dashboard/pkg/models"
)

func f(v float64) *float64 { return &v }

func TestComputeDeviceStatsScenario(t *testing.T) {
	devices := []models.Device{
		{ID: "1", Status: models.StatusUp, LatencyMs: f(20)},
		{ID: "2", Status: models.StatusDown},
		{ID: "3", Status: models.StatusUp, LatencyMs: f(30)},
	}
	stats := ComputeDeviceStats(devices)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.UpCount)
	assert.Equal(t, 1, stats.DownCount)
	assert.Equal(t, 66.7, stats.Availability)
	assert.Equal(t, 25.0, stats.AvgLatency)
	assert.Equal(t, 0.0, stats.AvgPacketLoss)
}

func TestComputeDeviceStatsEmpty(t *testing.T) {
	stats := ComputeDeviceStats(nil)
	assert.Equal(t, 0.0, stats.Availability)
	assert.Equal(t, 0.0, stats.AvgLatency)
	assert.Equal(t, 0.0, stats.AvgPacketLoss)
	assert.Equal(t, 0, stats.WarningCount)
}

func TestMeansIgnoreMissingValues(t *testing.T) {
	devices := []models.Device{
		{LatencyMs: f(10), PacketLossPercent: f(4)},
		{LatencyMs: nil, PacketLossPercent: nil},
	}
	stats := ComputeDeviceStats(devices)
	assert.Equal(t, 10.0, stats.AvgLatency)
	assert.Equal(t, 4.0, stats.AvgPacketLoss)
	assert.Equal(t, 10.0, MeanLatency(devices))
	assert.Equal(t, 4.0, MeanPacketLoss(devices))
}

func TestZeroLatencyCountsTowardsMean(t *testing.T) {
	devices := []models.Device{{LatencyMs: f(0)}, {LatencyMs: f(10)}}
	assert.Equal(t, 5.0, ComputeDeviceStats(devices).AvgLatency)
}

func TestAvailabilityBounds(t *testing.T) {
	for up := 0; up <= 5; up++ {
		devices := make([]models.Device, 0, 5)
		for i := 0; i < 5; i++ {
			s := models.StatusDown
			if i < up {
				s = models.StatusUp
			}
			devices = append(devices, models.Device{Status: s})
		}
		a := ComputeDeviceStats(devices).Availability
		assert.GreaterOrEqual(t, a, 0.0)
		assert.LessOrEqual(t, a, 100.0)
	}
}

func TestWarningBucketNeverNegative(t *testing.T) {
	cases := []models.DeviceStats{
		{Total: 0, UpCount: 0, DownCount: 0},
		{Total: 3, UpCount: 2, DownCount: 1},
		{Total: 2, UpCount: 2, DownCount: 1},
		{Total: 5, UpCount: 1, DownCount: 1},
	}
	for _, s := range cases {
		buckets := StatusDistribution(s)
		require.Len(t, buckets, 3)
		assert.Equal(t, "Warning", buckets[1].Name)
		assert.GreaterOrEqual(t, buckets[1].Value, 0)
	}
	assert.Equal(t, 3, StatusDistribution(models.DeviceStats{Total: 5, UpCount: 1, DownCount: 1})[1].Value)
}

func TestUnnormalizedStatusLandsInWarning(t *testing.T) {
	devices := []models.Device{{Status: models.StatusUp}, {Status: "degraded"}}
	stats := ComputeDeviceStats(devices)
	assert.Equal(t, 1, stats.WarningCount)
	assert.Equal(t, 50.0, stats.Availability)
}

func TestPushPointEvictsOldest(t *testing.T) {
	var buf []models.SeriesPoint
	for i := 0; i < 11; i++ {
		buf = PushPoint(buf, models.SeriesPoint{Time: string(rune('a' + i)), Value: float64(i)}, LiveCapacity)
		assert.LessOrEqual(t, len(buf), LiveCapacity)
	}
	require.Len(t, buf, LiveCapacity)
	assert.Equal(t, 1.0, buf[0].Value)
	assert.Equal(t, 10.0, buf[len(buf)-1].Value)
	for i := 1; i < len(buf); i++ {
		assert.Less(t, buf[i-1].Value, buf[i].Value)
	}
}

func TestPushPointDoesNotModifyInput(t *testing.T) {
	in := []models.SeriesPoint{{Value: 1}, {Value: 2}}
	out := PushPoint(in, models.SeriesPoint{Value: 3}, 2)
	assert.Equal(t, []models.SeriesPoint{{Value: 1}, {Value: 2}}, in)
	assert.Equal(t, []models.SeriesPoint{{Value: 2}, {Value: 3}}, out)
}

func TestSeries(t *testing.T) {
	s := NewSeries(SnapshotCapacity)
	at := time.Date(2026, 1, 1, 9, 5, 3, 0, time.UTC)
	for i := 0; i < 9; i++ {
		s.Push(float64(i), at.Add(time.Duration(i)*time.Second))
	}
	pts := s.Points()
	require.Len(t, pts, SnapshotCapacity)
	assert.Equal(t, 2.0, pts[0].Value)
	assert.Equal(t, "9:05:05", pts[0].Time)
	assert.Equal(t, "9:05:11", pts[len(pts)-1].Time)

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestTimeLabel(t *testing.T) {
	assert.Equal(t, "21:05:03", TimeLabel(time.Date(2026, 1, 1, 21, 5, 3, 0, time.UTC)))
	assert.Equal(t, "0:00:00", TimeLabel(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestHourlySnapshotWrapsAtMidnight(t *testing.T) {
	now := time.Date(2026, 1, 1, 2, 30, 0, 0, time.UTC)
	pts := HourlySnapshot(now, 12.345, SnapshotCapacity, 1)
	require.Len(t, pts, SnapshotCapacity)
	labels := make([]string, 0, len(pts))
	for _, p := range pts {
		labels = append(labels, p.Time)
		assert.Equal(t, 12.3, p.Value)
	}
	assert.Equal(t, []string{"20h", "21h", "22h", "23h", "0h", "1h", "2h"}, labels)
}

func TestNetworkQuality(t *testing.T) {
	assert.Equal(t, "Poor", NetworkQuality(31, 0).Label)
	assert.Equal(t, "Poor", NetworkQuality(31, 5).Label)
	assert.Equal(t, "Good", NetworkQuality(10, 1.5).Label)
	assert.Equal(t, "Excellent", NetworkQuality(30, 1).Label)
}

func TestBandwidthPercent(t *testing.T) {
	assert.Equal(t, 5.0, BandwidthPercent(50))
	assert.Equal(t, 100.0, BandwidthPercent(2500))
	assert.Equal(t, 0.0, BandwidthPercent(-1))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "N/A", FormatLatency(nil))
	assert.Equal(t, "0ms", FormatLatency(f(0)))
	assert.Equal(t, "12.5ms", FormatLatency(f(12.5)))
	assert.Equal(t, "N/A", FormatPacketLoss(nil))
	assert.Equal(t, "0%", FormatPacketLoss(f(0)))
}

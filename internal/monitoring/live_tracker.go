package monitoring

import (
	"sync"
	"time"

	"netmon-dashboard/internal/aggregate"
	"netmon-dashboard/internal/poller"
	"netmon-dashboard/pkg/models"
)

// LiveTracker holds the rolling series of the live network view and the
// last network snapshot
type LiveTracker struct {
	latency    *aggregate.Series
	packetLoss *aggregate.Series
	download   *aggregate.Series
	upload     *aggregate.Series
	snapshotN  int

	mu         sync.RWMutex
	network    *models.NetworkStatus
	lossMean   float64
	lastUpdate time.Time
}

// LiveView is the payload of the live network view
type LiveView struct {
	Latency          []models.SeriesPoint  `json:"latency"`
	PacketLoss       []models.SeriesPoint  `json:"packet_loss"`
	Download         []models.SeriesPoint  `json:"download"`
	Upload           []models.SeriesPoint  `json:"upload"`
	Network          *models.NetworkStatus `json:"network,omitempty"`
	Quality          *aggregate.Quality    `json:"quality,omitempty"`
	BandwidthPercent float64               `json:"bandwidth_percent"`
	LastUpdate       time.Time             `json:"last_update"`
}

func NewLiveTracker(liveCapacity, snapshotCapacity int) *LiveTracker {
	if liveCapacity < 1 {
		liveCapacity = aggregate.LiveCapacity
	}
	if snapshotCapacity < 1 {
		snapshotCapacity = aggregate.SnapshotCapacity
	}
	return &LiveTracker{
		latency:    aggregate.NewSeries(liveCapacity),
		packetLoss: aggregate.NewSeries(liveCapacity),
		download:   aggregate.NewSeries(liveCapacity),
		upload:     aggregate.NewSeries(liveCapacity),
		snapshotN:  snapshotCapacity,
	}
}

// Record pushes the points of one refresh cycle. Bandwidth points are only
// pushed when the cycle fetched a network snapshot.
func (lt *LiveTracker) Record(res poller.Result) {
	lt.latency.Push(aggregate.Round(res.MeanLatency, 2), res.At)
	lt.packetLoss.Push(aggregate.Round(res.MeanPacketLoss, 2), res.At)
	if res.Network != nil {
		lt.download.Push(res.Network.Bandwidth.Download, res.At)
		lt.upload.Push(res.Network.Bandwidth.Upload, res.At)
	}

	lt.mu.Lock()
	if res.Network != nil {
		n := *res.Network
		lt.network = &n
	}
	lt.lossMean = res.MeanPacketLoss
	lt.lastUpdate = res.At
	lt.mu.Unlock()
}

// Network returns the last network snapshot, nil before the first one
func (lt *LiveTracker) Network() *models.NetworkStatus {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	if lt.network == nil {
		return nil
	}
	n := *lt.network
	return &n
}

func (lt *LiveTracker) View() LiveView {
	v := LiveView{
		Latency:    lt.latency.Points(),
		PacketLoss: lt.packetLoss.Points(),
		Download:   lt.download.Points(),
		Upload:     lt.upload.Points(),
	}

	lt.mu.RLock()
	defer lt.mu.RUnlock()
	v.LastUpdate = lt.lastUpdate
	if lt.network != nil {
		n := *lt.network
		q := aggregate.NetworkQuality(n.Jitter, lt.lossMean)
		v.Network = &n
		v.Quality = &q
		v.BandwidthPercent = aggregate.BandwidthPercent(n.Bandwidth.Download)
	}
	return v
}

// Hourly builds the dashboard snapshot charts from the current averages
func (lt *LiveTracker) Hourly(now time.Time, stats models.DeviceStats) (latency, packetLoss []models.SeriesPoint) {
	return aggregate.HourlySnapshot(now, stats.AvgLatency, lt.snapshotN, 1),
		aggregate.HourlySnapshot(now, stats.AvgPacketLoss, lt.snapshotN, 2)
}

func (lt *LiveTracker) Reset() {
	lt.latency.Reset()
	lt.packetLoss.Reset()
	lt.download.Reset()
	lt.upload.Reset()

	lt.mu.Lock()
	lt.network = nil
	lt.lossMean = 0
	lt.lastUpdate = time.Time{}
	lt.mu.Unlock()
}

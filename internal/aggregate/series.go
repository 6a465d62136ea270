package aggregate

import (
	"fmt"
	"sync"
	"time"

	"netmon-dashboard/pkg/models"
)

const (
	// LiveCapacity is the rolling window of the live network charts
	LiveCapacity = 10
	// SnapshotCapacity is the number of hourly points on the dashboard charts
	SnapshotCapacity = 7
)

// TimeLabel formats t as a 24-hour wall-clock label without AM/PM, e.g.
// "9:05:03" or "21:05:03".
func TimeLabel(t time.Time) string {
	return fmt.Sprintf("%d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// PushPoint returns a new buffer with p appended at the tail. Once the length
// exceeds capacity the oldest points are dropped from the head. The input
// slice is never modified. A capacity below 1 is treated as 1.
func PushPoint(buf []models.SeriesPoint, p models.SeriesPoint, capacity int) []models.SeriesPoint {
	if capacity < 1 {
		capacity = 1
	}
	start := 0
	if len(buf)+1 > capacity {
		start = len(buf) + 1 - capacity
	}
	out := make([]models.SeriesPoint, 0, len(buf)-start+1)
	out = append(out, buf[start:]...)
	return append(out, p)
}

// Series is a fixed-capacity FIFO of chart points safe for concurrent use.
type Series struct {
	mu       sync.RWMutex
	capacity int
	points   []models.SeriesPoint
}

// NewSeries creates an empty series holding at most capacity points.
func NewSeries(capacity int) *Series {
	if capacity < 1 {
		capacity = 1
	}
	return &Series{capacity: capacity}
}

// Push appends value labelled with the wall-clock time at.
func (s *Series) Push(value float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = PushPoint(s.points, models.SeriesPoint{Time: TimeLabel(at), Value: value}, s.capacity)
}

// Points returns a copy of the buffered points, oldest first.
func (s *Series) Points() []models.SeriesPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SeriesPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Len returns the number of buffered points.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Capacity returns the configured maximum length.
func (s *Series) Capacity() int {
	return s.capacity
}

// Reset drops every buffered point.
func (s *Series) Reset() {
	s.mu.Lock()
	s.points = nil
	s.mu.Unlock()
}

// HourlySnapshot builds the dashboard chart: n points labelled "<hour>h" for
// the hours now-(n-1) through now, wrapping at midnight, each carrying value
// rounded to decimals.
func HourlySnapshot(now time.Time, value float64, n, decimals int) []models.SeriesPoint {
	if n < 1 {
		return nil
	}
	v := Round(value, decimals)
	out := make([]models.SeriesPoint, 0, n)
	for i := 0; i < n; i++ {
		hour := ((now.Hour()-(n-1-i))%24 + 24) % 24
		out = append(out, models.SeriesPoint{Time: fmt.Sprintf("%dh", hour), Value: v})
	}
	return out
}

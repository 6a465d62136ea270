// Package poller drives the periodic refresh of device and network state.
//
// A Poller is either Idle or Polling. Start runs one cycle immediately and
// then one per interval; Stop cancels the schedule without aborting a cycle
// already in flight. Cycles never overlap: ticks and manual refreshes that
// arrive while a cycle runs join it through a singleflight group, and every
// cycle carries a sequence number so a result older than the last applied
// one is dropped.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"netmon-dashboard/internal/aggregate"
	"netmon-dashboard/pkg/logger"
	"netmon-dashboard/pkg/models"
)

// Source is the backend side of a refresh cycle
type Source interface {
	RefreshDevices(ctx context.Context) ([]models.Device, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
	NetworkStatus(ctx context.Context) (models.NetworkStatus, error)
}

// Sink receives cycle results in sequence order
type Sink interface {
	Apply(res Result)
}

// Result is the outcome of one refresh cycle
type Result struct {
	Seq            uint64                `json:"seq"`
	At             time.Time             `json:"at"`
	Devices        []models.Device       `json:"devices"`
	Stats          models.DeviceStats    `json:"stats"`
	MeanLatency    float64               `json:"mean_latency"`
	MeanPacketLoss float64               `json:"mean_packet_loss"`
	Network        *models.NetworkStatus `json:"network,omitempty"`
	Warnings       []string              `json:"warnings,omitempty"`
}

// State is whether the poller is running its timed loop
type State int

const (
	Idle State = iota
	Polling
)

// String returns "polling" or "idle"
func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// ErrNoDevices is returned when a cycle could not obtain the device
// collection from either the re-check or the fetch step.
var ErrNoDevices = errors.New("poller: device collection unavailable")

// Options configures a Poller. Zero values take the defaults.
type Options struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	// Ready gates cycles; a cycle is skipped when it returns false
	Ready func() bool
}

// Status is a point-in-time view of the poller
type Status struct {
	State    string    `json:"state"`
	Interval string    `json:"interval"`
	Cycles   uint64    `json:"cycles"`
	Failures uint64    `json:"failures"`
	Skipped  uint64    `json:"skipped"`
	LastSeq  uint64    `json:"last_seq"`
	LastRun  time.Time `json:"last_run"`
}

// Poller runs refresh cycles on a timer or on demand and hands their
// results to a Sink in sequence order.
type Poller struct {
	source       Source
	sink         Sink
	interval     time.Duration
	cycleTimeout time.Duration
	ready        func() bool
	now          func() time.Time
	log          *zap.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	group singleflight.Group
	seq   atomic.Uint64

	applyMu sync.Mutex
	applied uint64
	lastRun time.Time

	cycles   atomic.Uint64
	failures atomic.Uint64
	skipped  atomic.Uint64
}

// New creates an idle poller reading from source and publishing to sink
func New(source Source, sink Sink, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = 4 * opts.Interval
	}
	return &Poller{
		source:       source,
		sink:         sink,
		interval:     opts.Interval,
		cycleTimeout: opts.CycleTimeout,
		ready:        opts.Ready,
		now:          time.Now,
		log:          logger.Named("poller"),
	}
}

// Start enters Polling and runs the first cycle at once. It returns false
// when the poller is already polling.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Polling {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.state = Polling
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(loopCtx, p.done)

	p.log.Info("Polling started", zap.Duration("interval", p.interval))
	return true
}

// Stop clears the schedule and returns to Idle. A cycle in flight finishes
// and its result is still applied. It returns false when already idle.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Idle {
		return false
	}
	p.cancel()
	p.state = Idle
	p.log.Info("Polling stopped")
	return true
}

// Wait blocks until the most recent polling loop has exited
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) Status() Status {
	p.applyMu.Lock()
	lastSeq, lastRun := p.applied, p.lastRun
	p.applyMu.Unlock()
	return Status{
		State:    p.State().String(),
		Interval: p.interval.String(),
		Cycles:   p.cycles.Load(),
		Failures: p.failures.Load(),
		Skipped:  p.skipped.Load(),
		LastSeq:  lastSeq,
		LastRun:  lastRun,
	}
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		// parent cancellation ends polling as well
		p.mu.Lock()
		if p.done == done {
			p.state = Idle
		}
		p.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.ready != nil && !p.ready() {
		p.skipped.Add(1)
		return
	}
	if _, err := p.Refresh(ctx); err != nil {
		p.log.Warn("Refresh cycle failed", zap.Error(err))
	}
}

// Refresh runs a cycle now, or joins the one already running. The cycle is
// detached from ctx cancellation so stopping never aborts its requests.
func (p *Poller) Refresh(ctx context.Context) (Result, error) {
	v, err, shared := p.group.Do("cycle", func() (any, error) {
		cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cycleTimeout)
		defer cancel()
		return p.cycle(cycleCtx)
	})
	if shared {
		p.log.Debug("Joined in-flight refresh cycle")
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (p *Poller) cycle(ctx context.Context) (Result, error) {
	seq := p.seq.Add(1)
	start := p.now()
	p.cycles.Add(1)

	res := Result{Seq: seq}

	// 1. liveness re-check
	refreshed, err := p.source.RefreshDevices(ctx)
	if err != nil {
		p.log.Warn("Device re-check failed", zap.Uint64("seq", seq), zap.Error(err))
		res.Warnings = append(res.Warnings, "device re-check failed")
	}

	// 2. device collection
	devices, err := p.source.ListDevices(ctx)
	if err != nil {
		p.log.Warn("Device fetch failed", zap.Uint64("seq", seq), zap.Error(err))
		if refreshed == nil {
			p.failures.Add(1)
			return Result{}, errors.Join(ErrNoDevices, err)
		}
		res.Warnings = append(res.Warnings, "device fetch failed, using re-check result")
		devices = refreshed
	}

	// 3. live network metrics
	if status, err := p.source.NetworkStatus(ctx); err != nil {
		p.log.Warn("Network status fetch failed", zap.Uint64("seq", seq), zap.Error(err))
		res.Warnings = append(res.Warnings, "network status unavailable")
	} else {
		res.Network = &status
	}

	// 4. aggregation
	res.At = p.now()
	res.Devices = devices
	res.Stats = aggregate.ComputeDeviceStats(devices)
	res.MeanLatency = aggregate.MeanLatency(devices)
	res.MeanPacketLoss = aggregate.MeanPacketLoss(devices)

	// 5. publish; the sink pushes the time-series points
	if !p.apply(res) {
		p.log.Debug("Discarded stale refresh result", zap.Uint64("seq", seq))
	}

	p.log.Debug("Refresh cycle completed",
		zap.Uint64("seq", seq),
		zap.Int("devices", len(devices)),
		zap.Float64("availability", res.Stats.Availability),
		zap.Duration("duration", p.now().Sub(start)),
	)
	return res, nil
}

// Invalidate marks every cycle started so far as stale. Their results are
// discarded when they complete.
func (p *Poller) Invalidate() {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	if seq := p.seq.Load(); seq > p.applied {
		p.applied = seq
	}
}

// apply hands res to the sink unless a newer result was applied already
func (p *Poller) apply(res Result) bool {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	if res.Seq <= p.applied {
		return false
	}
	p.applied = res.Seq
	p.lastRun = res.At
	if p.sink != nil {
		p.sink.Apply(res)
	}
	return true
}

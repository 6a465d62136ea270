package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"netmon-dashboard/pkg/logger"
	"netmon-dashboard/pkg/models"
)

const (
	bufferSize    = 256
	batchSize     = 50
	flushInterval = 200 * time.Millisecond
	sendTimeout   = 10 * time.Second
)

// ErrBufferFull is returned when the event buffer cannot take more events
var ErrBufferFull = errors.New("notify: buffer full, event dropped")

// ErrClosed is returned by Publish after Close
var ErrClosed = errors.New("notify: notifier closed")

// Transport delivers batches of events
type Transport interface {
	Send(ctx context.Context, events []Event) error
	Close() error
}

// Notifier buffers events and hands them to every transport in batches
// from a background goroutine.
type Notifier struct {
	source     string
	hostname   string
	transports []Transport
	log        *zap.Logger
	now        func() time.Time

	mu     sync.RWMutex
	closed bool
	buffer chan Event
	done   chan struct{}
}

func New(source string, transports ...Transport) *Notifier {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	n := &Notifier{
		source:     source,
		hostname:   hostname,
		transports: transports,
		log:        logger.Named("notify"),
		now:        time.Now,
		buffer:     make(chan Event, bufferSize),
		done:       make(chan struct{}),
	}
	go n.backgroundSender()
	return n
}

// Publish queues an event without blocking
func (n *Notifier) Publish(typ EventType, severity Severity, message string, data map[string]any) error {
	event := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Severity:   severity,
		Message:    message,
		Data:       data,
		Source:     n.source,
		SourceHost: n.hostname,
		Timestamp:  n.now().UTC(),
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrClosed
	}
	select {
	case n.buffer <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// HealthChanged reports a system-health transition
func (n *Notifier) HealthChanged(previous, current models.Health, critical, warning int) error {
	return n.Publish(EventHealthChanged, HealthSeverity(current),
		fmt.Sprintf("System health changed from %s to %s", previous, current),
		map[string]any{
			"previous":        string(previous),
			"current":         string(current),
			"critical_alerts": critical,
			"warning_alerts":  warning,
		})
}

// DeviceStatusChanged reports a device going up or down between two polls
func (n *Notifier) DeviceStatusChanged(d models.Device) error {
	typ, sev := EventDeviceUp, SeverityInfo
	if d.Status != models.StatusUp {
		typ, sev = EventDeviceDown, SeverityWarning
	}
	return n.Publish(typ, sev,
		fmt.Sprintf("Device %s (%s) is %s", d.Name, d.IP, d.Status),
		map[string]any{"device_id": d.ID, "device_name": d.Name, "device_ip": d.IP, "status": string(d.Status)})
}

// Session reports a login or logout
func (n *Notifier) Session(typ EventType, username string) error {
	return n.Publish(typ, SeverityInfo, fmt.Sprintf("%s: %s", typ, username), map[string]any{"username": username})
}

// ReportExported reports a stored report object
func (n *Notifier) ReportExported(period, object string) error {
	return n.Publish(EventReportExported, SeverityInfo,
		fmt.Sprintf("%s report exported", period),
		map[string]any{"period": period, "object": object})
}

func (n *Notifier) backgroundSender() {
	defer close(n.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchSize)
	for {
		select {
		case event, ok := <-n.buffer:
			if !ok {
				if len(batch) > 0 {
					n.sendBatch(batch)
				}
				return
			}
			batch = append(batch, event)
			if len(batch) >= batchSize {
				n.sendBatch(batch)
				batch = make([]Event, 0, batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				n.sendBatch(batch)
				batch = make([]Event, 0, batchSize)
			}
		}
	}
}

func (n *Notifier) sendBatch(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	for _, transport := range n.transports {
		if err := transport.Send(ctx, batch); err != nil {
			n.log.Error("Failed to deliver events",
				zap.String("transport", fmt.Sprintf("%T", transport)),
				zap.Int("events", len(batch)),
				zap.Error(err),
			)
		}
	}
}

// Close flushes buffered events and closes every transport
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.buffer)
	n.mu.Unlock()

	<-n.done

	var errs []error
	for _, transport := range n.transports {
		if err := transport.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

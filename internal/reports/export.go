package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gocarina/gocsv"

	"netmon-dashboard/pkg/db"
	"netmon-dashboard/pkg/logger"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts json or csv
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unsupported report format %q", s)
}

// ObjectStore keeps exported report files
type ObjectStore interface {
	Store(ctx context.Context, period string, at time.Time, ext, contentType string, body []byte) (string, error)
	Get(ctx context.Context, objectName string) ([]byte, error)
	List(ctx context.Context, period string) ([]db.StoredObject, error)
	DeleteBefore(ctx context.Context, before time.Time) (int, error)
}

// Encode renders r. CSV carries the device table only.
func Encode(r Report, f Format) ([]byte, string, error) {
	switch f {
	case FormatCSV:
		rows := make([]*DeviceRow, 0, len(r.Devices))
		for i := range r.Devices {
			rows = append(rows, &r.Devices[i])
		}
		var buf bytes.Buffer
		if err := gocsv.Marshal(rows, &buf); err != nil {
			return nil, "", fmt.Errorf("failed to encode csv report: %w", err)
		}
		return buf.Bytes(), "text/csv", nil
	default:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode json report: %w", err)
		}
		return b, "application/json", nil
	}
}

// Exporter writes reports to an ObjectStore
type Exporter struct {
	store     ObjectStore
	format    Format
	retention time.Duration
}

func NewExporter(store ObjectStore, format Format, retention time.Duration) *Exporter {
	if format == "" {
		format = FormatJSON
	}
	return &Exporter{store: store, format: format, retention: retention}
}

// Format is the default export format
func (e *Exporter) Format() Format {
	return e.format
}

// Export encodes r (in f, or the default format when empty) and stores it,
// returning the object name
func (e *Exporter) Export(ctx context.Context, r Report, f Format) (string, error) {
	if f == "" {
		f = e.format
	}
	body, contentType, err := Encode(r, f)
	if err != nil {
		return "", err
	}
	name, err := e.store.Store(ctx, string(r.Period), r.GeneratedAt, string(f), contentType, body)
	if err != nil {
		return "", err
	}
	logger.Info("Report exported",
		logger.String("period", string(r.Period)),
		logger.String("object", name),
		logger.Int("bytes", len(body)),
	)
	return name, nil
}

func (e *Exporter) List(ctx context.Context, period string) ([]db.StoredObject, error) {
	return e.store.List(ctx, period)
}

func (e *Exporter) Download(ctx context.Context, objectName string) ([]byte, error) {
	return e.store.Get(ctx, objectName)
}

// Prune removes reports older than the retention window
func (e *Exporter) Prune(ctx context.Context, now time.Time) (int, error) {
	if e.retention <= 0 {
		return 0, nil
	}
	return e.store.DeleteBefore(ctx, now.Add(-e.retention))
}

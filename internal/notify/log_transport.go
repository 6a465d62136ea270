package notify

import (
	"context"

	"go.uber.org/zap"

	"netmon-dashboard/pkg/logger"
)

// LogTransport writes events to the structured log. It is the transport
// used when no broker is configured.
type LogTransport struct {
	log *zap.Logger
}

func NewLogTransport() *LogTransport {
	return &LogTransport{log: logger.Named("events")}
}

func (t *LogTransport) Send(_ context.Context, events []Event) error {
	for _, e := range events {
		t.log.Info(e.Message,
			zap.String("event_id", e.ID),
			zap.String("event_type", string(e.Type)),
			zap.String("severity", string(e.Severity)),
			zap.Any("data", e.Data),
		)
	}
	return nil
}

func (t *LogTransport) Close() error { return nil }

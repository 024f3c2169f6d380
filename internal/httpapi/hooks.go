package httpapi

import (
	"context"
	"log/slog"
	"time"

	"facetrack/internal/camera"
	"facetrack/internal/detection"
	"facetrack/internal/logging"
	"facetrack/internal/metrics"
	"facetrack/internal/queue"
)

const publishTimeout = 2 * time.Second

// ScannerHooks counts scanner activity and publishes every confirmation to q.
// A nil q only counts.
func ScannerHooks(m *metrics.Metrics, q queue.Queue, logger *slog.Logger) detection.Hooks {
	logger = logging.Or(logger).With("component", "scanner-hooks")
	return detection.Hooks{
		OnFeed: func(src camera.Source) {
			m.Feeds.WithLabelValues(string(src)).Inc()
		},
		OnScan: func(int) {
			m.Scans.Inc()
		},
		OnMatch: func(detection.Event) {
			m.Matches.Inc()
		},
		OnExpire: func(detection.Event) {
			m.Expired.Inc()
		},
		OnConfirm: func(c detection.Confirmation) {
			m.Confirmations.Inc()
			if q == nil {
				return
			}
			msg, err := queue.NewMessage(queue.TypeConfirmation, c)
			if err != nil {
				logger.Error("encode confirmation failed", "error", err, "event_id", c.EventID)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			if err := q.Publish(ctx, msg); err != nil {
				logger.Warn("queue publish failed", "error", err, "event_id", c.EventID)
			}
		},
	}
}

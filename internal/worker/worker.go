package worker

import (
	"context"

	"facetrack/internal/detection"
	"facetrack/internal/logging"
	"facetrack/internal/queue"
)

// Handler processes one decoded confirmation.
type Handler func(ctx context.Context, c detection.Confirmation)

// LogConfirmation records a confirmation with the context logger.
func LogConfirmation(ctx context.Context, c detection.Confirmation) {
	logging.FromContext(ctx, nil).InfoContext(ctx, "attendance confirmed",
		"event_id", c.EventID,
		"employee_id", c.Identity.EmployeeID,
		"name", c.Identity.Name,
		"confidence", c.Confidence,
		"confirmed_at", c.ConfirmedAt,
	)
}

// Handle decodes msg and passes confirmations to h. Other message types and
// malformed bodies are skipped.
func Handle(ctx context.Context, msg queue.Message, h Handler) {
	logger := logging.FromContext(ctx, nil)
	if msg.Type != queue.TypeConfirmation {
		logger.Debug("skipping message", "type", msg.Type)
		return
	}
	var c detection.Confirmation
	if err := msg.Decode(&c); err != nil {
		logger.Warn("malformed confirmation", "error", err)
		return
	}
	h(ctx, c)
}

// Run consumes q until ctx is done.
func Run(ctx context.Context, q queue.Queue, h Handler) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		Handle(ctx, msg, h)
	}
	return nil
}

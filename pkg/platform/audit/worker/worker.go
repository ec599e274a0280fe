package worker

import (
	"context"
	"log/slog"

	audit "leadline/pkg/platform/audit"
)

// Worker drains an event channel into a sink. Sink failures are logged and
// the worker keeps going; lead activity events are best-effort.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run consumes until the inbox is closed. Events still buffered when the
// inbox closes are written before Run returns.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.sink.Append(ctx, event); err != nil {
			w.logger.WarnContext(ctx, "failed to deliver lead event",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
	}
}

package notify

import (
	"context"
	"log/slog"
)

// Sink receives events for export outside the process.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Worker consumes events from a channel and fans them out to sinks. It keeps
// background processing testable without wiring queue implementations into
// the service.
type Worker struct {
	sinks  []Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{sinks: sinks, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is done. A failing sink is logged
// and skipped; sinks are export paths, not part of the registry's commit.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, sink := range w.sinks {
				if err := sink.Append(ctx, event); err != nil {
					w.logger.ErrorContext(ctx, "event sink append failed",
						"error", err,
						"event_type", string(event.Type),
						"sequence", event.Sequence,
					)
				}
			}
		}
	}
}

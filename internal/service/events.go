package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/blogsite/internal/events"
)

// publish is best-effort. The write it describes has already committed, so
// a failed publish is logged and never returned to the caller.
func publish(ctx context.Context, p events.Publisher, logger *slog.Logger, e events.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Warn("event publish failed",
			slog.String("type", string(e.Type)),
			slog.String("post", e.PostID),
			slog.String("error", err.Error()),
		)
	}
}

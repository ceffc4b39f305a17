package notify

import (
	"context"
	"log/slog"

	"roster-lab/domain"
)

// LogNotifier writes notifications to the structured log. It is the
// default delivery when no broker is configured and the drop-in used by
// local runs.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, recipient domain.UserID, notice domain.Notification) error {
	attrs := []any{
		slog.String("kind", string(notice.Kind)),
		slog.String("recipient", string(recipient)),
		slog.String("tenant", string(notice.Tenant)),
		slog.String("session", notice.Session.String()),
	}
	if notice.User != "" {
		attrs = append(attrs, slog.String("subject", string(notice.User)))
	}
	if notice.Position > 0 {
		attrs = append(attrs, slog.Int("position", notice.Position))
	}
	if !notice.Deadline.IsZero() {
		attrs = append(attrs, slog.Time("deadline", notice.Deadline))
	}
	n.log.Info("Notification", attrs...)
	return nil
}

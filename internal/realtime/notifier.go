package realtime

import (
	"context"
	"log/slog"
)

// Publisher is the part of Node the notifier needs.
type Publisher interface {
	Publish(eventType string, data any) error
}

// Notifier wraps Node for use by the services. Delivery is best effort: a
// failed publish is logged and never fails the operation that caused it.
type Notifier struct {
	node   Publisher
	logger *slog.Logger
}

func NewNotifier(node Publisher, logger *slog.Logger) *Notifier {
	return &Notifier{node: node, logger: logger.With(slog.String("component", "notifier"))}
}

func (n *Notifier) Notify(ctx context.Context, eventType string, data any) {
	if n == nil || n.node == nil {
		return
	}
	if err := n.node.Publish(eventType, data); err != nil {
		n.logger.WarnContext(ctx, "failed to publish event",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}

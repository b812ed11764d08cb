package governance

import (
	"context"
	"log/slog"
)

// Notification is a governance event delivered to stakeholders.
type Notification struct {
	Kind       string           `json:"kind"`
	Category   TemplateCategory `json:"category"`
	RequestID  string           `json:"requestId,omitempty"`
	Subject    string           `json:"subject"`
	Body       string           `json:"body,omitempty"`
	Recipients []string         `json:"recipients,omitempty"`
}

// NotificationService delivers notifications to stakeholders. Delivery is
// best-effort: the orchestrator logs send failures but never fails a
// governance operation because of them.
type NotificationService interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log. It is the default
// implementation; production deployments inject an email/chat-backed service.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send implements NotificationService.
func (n *LogNotifier) Send(ctx context.Context, notification Notification) error {
	n.logger.Info("notification",
		"kind", notification.Kind,
		"category", notification.Category,
		"requestId", notification.RequestID,
		"subject", notification.Subject,
		"recipients", notification.Recipients,
	)
	return nil
}

package security

import (
	"context"
	"log/slog"

	"github.com/makrx-community/gateway-security-core/internal/shared/redact"
)

// EventLogger emits one structured record per Event, newline-delimited JSON
// via the injected slog.Logger (spec §4.7). HIGH and CRITICAL levels also
// emit a second record tagged "alert": true, intended for a downstream
// alerting integration, and are logged at a higher severity than the base
// record.
//
// Events carry a free-form Details map populated by the classifier (raw
// claim values, header fragments); an optional redactor scrubs it before
// it reaches the logger so PII never lands in security logs.
type EventLogger struct {
	logger   *slog.Logger
	redactor redact.Redactor
}

// NewEventLogger wraps an existing structured logger. Passing nil uses
// slog.Default().
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger}
}

// WithRedactor attaches a PII redactor applied to event Details before
// logging (spec §10, AUDIT_REDACT_EMAIL). Returns the receiver for chaining.
func (l *EventLogger) WithRedactor(redactor redact.Redactor) *EventLogger {
	l.redactor = redactor
	return l
}

// Log emits event at the severity its threat level selects.
func (l *EventLogger) Log(ctx context.Context, event Event) {
	attrs := l.attrs(event)

	switch event.Level {
	case LevelCritical:
		l.logger.LogAttrs(ctx, slog.LevelError+4, "jwt_security", attrs...)
	case LevelHigh:
		l.logger.LogAttrs(ctx, slog.LevelError, "jwt_security", attrs...)
	case LevelMedium:
		l.logger.LogAttrs(ctx, slog.LevelWarn, "jwt_security", attrs...)
	default:
		l.logger.LogAttrs(ctx, slog.LevelInfo, "jwt_security", attrs...)
	}

	if event.Level == LevelHigh || event.Level == LevelCritical {
		alertAttrs := append([]slog.Attr{slog.Bool("alert", true)}, attrs...)
		l.logger.LogAttrs(ctx, slog.LevelError, "jwt_security_alert", alertAttrs...)
	}
}

func (l *EventLogger) attrs(event Event) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("event", "jwt_security"),
		slog.Time("timestamp", event.Timestamp.UTC()),
		slog.String("kind", string(event.Kind)),
		slog.String("threat_level", event.Level.String()),
		slog.String("origin", event.Origin),
		slog.String("user_agent", event.UserAgent),
		slog.String("request_id", event.RequestID),
	}
	if event.Subject != "" {
		attrs = append(attrs, slog.String("subject", event.Subject))
	}
	if event.TokenID != "" {
		attrs = append(attrs, slog.String("token_id", event.TokenID))
	}
	if len(event.Details) > 0 {
		details := any(event.Details)
		if l.redactor != nil {
			details = l.redactor.Redact(event.Details)
		}
		attrs = append(attrs, slog.Any("details", details))
	}
	return attrs
}

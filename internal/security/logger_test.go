package security

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/makrx-community/gateway-security-core/internal/shared/redact"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("failed to decode log line %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

func TestEventLogger_LowLevelEmitsSingleRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := NewEventLogger(newTestLogger(&buf))

	event := NewEvent(time.Now(), KindMissingClaims, "1.2.3.4", "curl/8", "req-1")
	logger.Log(context.Background(), event)

	records := decodeLines(t, &buf)
	if len(records) != 1 {
		t.Fatalf("got %d log records, want 1 for a LOW-severity event", len(records))
	}
	if records[0]["msg"] != "jwt_security" {
		t.Errorf("msg = %v, want jwt_security", records[0]["msg"])
	}
}

func TestEventLogger_HighLevelEmitsAlertDuplicate(t *testing.T) {
	var buf bytes.Buffer
	logger := NewEventLogger(newTestLogger(&buf))

	event := NewEvent(time.Now(), KindInvalidSignature, "1.2.3.4", "curl/8", "req-2")
	event.Level = LevelHigh
	logger.Log(context.Background(), event)

	records := decodeLines(t, &buf)
	if len(records) != 2 {
		t.Fatalf("got %d log records, want 2 (base + alert) for a HIGH-severity event", len(records))
	}
	if records[1]["msg"] != "jwt_security_alert" {
		t.Errorf("second record msg = %v, want jwt_security_alert", records[1]["msg"])
	}
	if records[1]["alert"] != true {
		t.Errorf("alert record missing alert=true: %+v", records[1])
	}
}

func TestEventLogger_CriticalLevelEmitsAlertDuplicate(t *testing.T) {
	var buf bytes.Buffer
	logger := NewEventLogger(newTestLogger(&buf))

	event := NewEvent(time.Now(), KindBruteForceAttempt, "1.2.3.4", "curl/8", "req-3")
	event.Level = LevelCritical
	logger.Log(context.Background(), event)

	records := decodeLines(t, &buf)
	if len(records) != 2 {
		t.Fatalf("got %d log records, want 2 (base + alert) for a CRITICAL-severity event", len(records))
	}
}

func TestEventLogger_RedactsDetailsWhenRedactorSet(t *testing.T) {
	var buf bytes.Buffer
	logger := NewEventLogger(newTestLogger(&buf)).WithRedactor(redact.NewPIIRedactor(redact.RedactorConfig{EmailMode: "full"}))

	event := NewEvent(time.Now(), KindMissingClaims, "1.2.3.4", "curl/8", "req-4").
		WithDetails(map[string]any{"email": "user@example.com"})
	logger.Log(context.Background(), event)

	if strings.Contains(buf.String(), "user@example.com") {
		t.Fatal("expected email redacted from logged details")
	}
}

func TestEventLogger_NilLoggerUsesDefault(t *testing.T) {
	logger := NewEventLogger(nil)
	logger.Log(context.Background(), NewEvent(time.Now(), KindMissingClaims, "1.2.3.4", "curl/8", "req-5"))
}

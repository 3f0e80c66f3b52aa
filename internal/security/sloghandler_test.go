package security

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(r *Redactor) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactingHandler(inner, r)), &buf
}

func TestRedactingHandler_RedactsMessageAndAttrs(t *testing.T) {
	t.Parallel()

	r := NewRedactor()
	r.AddLiteral("napcat-token")
	logger, buf := newTestLogger(r)

	logger.Info("sending with napcat-token", "token", "napcat-token", "safe", "visible")

	out := buf.String()
	if strings.Contains(out, "napcat-token") {
		t.Errorf("secret found in log output: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("safe value missing from output: %s", out)
	}
}

func TestRedactingHandler_WithAttrsAndGroups(t *testing.T) {
	t.Parallel()

	r := NewRedactor()
	r.AddLiteral("persistent-secret")
	logger, buf := newTestLogger(r)

	logger.With("cfg", "persistent-secret").WithGroup("qq").Info("msg",
		slog.Group("auth", "value", "persistent-secret"),
	)

	out := buf.String()
	if strings.Contains(out, "persistent-secret") {
		t.Errorf("secret found in output: %s", out)
	}
	if !strings.Contains(out, "qq.auth.value") {
		t.Errorf("group prefix missing: %s", out)
	}
}

func TestRedactingHandler_RedactsErrors(t *testing.T) {
	t.Parallel()

	r := NewRedactor()
	logger, buf := newTestLogger(r)

	logger.Error("send failed", "error", errors.New("POST http://x/send?access_token=abc123: refused"))

	if out := buf.String(); strings.Contains(out, "abc123") {
		t.Errorf("token in error leaked: %s", out)
	}
}

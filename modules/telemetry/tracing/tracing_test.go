package tracing

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/qqrelay/internal/core"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"
)

func mustNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	return node.Content[0]
}

func newModule(t *testing.T, cfg string) *Module {
	t.Helper()
	m := &Module{}
	if err := m.Configure(mustNode(t, cfg)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	appCtx := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir())
	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return m
}

func TestConfigure_Defaults(t *testing.T) {
	t.Parallel()

	m := newModule(t, `endpoint: "collector:4318"`)
	if m.config.ServiceName != "qqrelay" {
		t.Errorf("ServiceName = %q", m.config.ServiceName)
	}
	if *m.config.SampleRatio != 1 {
		t.Errorf("SampleRatio = %v", *m.config.SampleRatio)
	}
	if m.config.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v", m.config.Timeout)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{}`,
		`endpoint: "ftp://collector/v1/traces"`,
		`{endpoint: "collector:4318", sample_ratio: 1.5}`,
		`{endpoint: "collector:4318", sample_ratio: -0.1}`,
	} {
		m := newModule(t, raw)
		if err := m.Validate(); err == nil {
			t.Errorf("Validate(%s) = nil, want error", raw)
		}
	}
}

// Not parallel: installs the global tracer provider.
func TestStartStop_ExportsSpans(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		if r.URL.Path == "/v1/traces" {
			requests.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newModule(t, `endpoint: "`+srv.URL+`/v1/traces"`)
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	before := otel.GetTracerProvider()

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if otel.GetTracerProvider() == before {
		t.Fatal("global tracer provider not installed")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "qq.handle_event")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if requests.Load() == 0 {
		t.Error("no spans exported on shutdown")
	}
}

func TestStop_NotStarted(t *testing.T) {
	t.Parallel()

	m := &Module{}
	if err := m.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

// Package tracing exports OpenTelemetry traces over OTLP/HTTP. When loaded it
// installs the global tracer provider used by the channel spans.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/qqrelay/internal/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module is the telemetry.otel module.
type Module struct {
	config   Config
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.otel",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("tracing: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter. The exporter connects lazily, so an
// unreachable collector does not prevent startup.
func (m *Module) Start() error {
	exporter, err := otlptracehttp.New(context.Background(), m.exporterOptions()...)
	if err != nil {
		return fmt.Errorf("tracing: create exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", m.config.ServiceName))
	m.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(*m.config.SampleRatio))),
	)
	otel.SetTracerProvider(m.provider)

	m.logger.Info("tracing started",
		"endpoint", m.config.Endpoint,
		"service_name", m.config.ServiceName,
		"sample_ratio", *m.config.SampleRatio,
	)
	return nil
}

func (m *Module) exporterOptions() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithTimeout(m.config.Timeout)}
	if m.config.isURL() {
		opts = append(opts, otlptracehttp.WithEndpointURL(m.config.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(m.config.Endpoint))
		if m.config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}
	if len(m.config.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(m.config.Headers))
	}
	return opts
}

// Stop implements core.Stopper. Pending spans are flushed; spans started
// afterwards are dropped.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	err := m.provider.Shutdown(ctx)
	m.provider = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tracing: shutdown: %w", err)
	}
	return nil
}

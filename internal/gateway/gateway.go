package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/flemzord/qqrelay/internal/channel"
	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/router"
	"github.com/flemzord/qqrelay/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// Service names published or consumed by the gateway.
const (
	// WebhookDispatcherService is the *WebhookDispatcher channels mount on.
	WebhookDispatcherService = "gateway.webhook_dispatcher"
	// MetricsService is the *prometheus.Registry served on /metrics.
	MetricsService = "gateway.metrics"
	// ConfigPathService is the path of the loaded configuration file.
	ConfigPathService = "config.path"
	// ReloadService is a func() error that reloads the configuration.
	ReloadService = "config.reload"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// pendingCounter reports the number of conversations with queued work.
type pendingCounter interface {
	Len() int
}

// Gateway is the HTTP gateway module. It serves health, metrics, admin and
// webhook endpoints. It is a leaf module; channels reach it only through
// the webhook dispatcher service.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	dispatcher *WebhookDispatcher
	registry   *prometheus.Registry
	metrics    *Metrics
	startedAt  time.Time
	addr       atomic.Value

	// Resolved lazily at Start() via service registry.
	queue      pendingCounter
	sessions   session.Store
	channels   *channel.Dispatcher
	configPath string
	reload     func() error
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.dispatcher = NewWebhookDispatcher(g.logger)

	reg, ok := core.Service[*prometheus.Registry](ctx, MetricsService)
	if !ok {
		reg = prometheus.NewRegistry()
		ctx.RegisterService(MetricsService, reg)
	}
	g.registry = reg
	g.metrics = NewMetrics(reg)

	ctx.RegisterService(WebhookDispatcherService, g.dispatcher)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadHeaderTimeout: g.config.ReadHeaderTimeout,
		ReadTimeout:       g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
		IdleTimeout:       g.config.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(g.logHandler(), slog.LevelWarn),
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	g.addr.Store(ln.Addr().String())

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolveServices binds the optional services; missing ones degrade the
// corresponding endpoints.
func (g *Gateway) resolveServices() {
	if q, ok := core.Service[pendingCounter](g.appCtx, router.QueueService); ok {
		g.queue = q
	}
	if s, ok := core.Service[session.Store](g.appCtx, session.StoreService); ok {
		g.sessions = s
	}
	if d, ok := core.Service[*channel.Dispatcher](g.appCtx, channel.DispatcherService); ok {
		g.channels = d
	}
	if p, ok := core.Service[string](g.appCtx, ConfigPathService); ok {
		g.configPath = p
	}
	if fn, ok := core.Service[func() error](g.appCtx, ReloadService); ok {
		g.reload = fn
	}
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Addr returns the address the server listens on, or "" before Start.
// With a ":0" bind it reports the port the kernel picked.
func (g *Gateway) Addr() string {
	addr, _ := g.addr.Load().(string)
	return addr
}

// Dispatcher returns the webhook dispatcher.
func (g *Gateway) Dispatcher() *WebhookDispatcher {
	return g.dispatcher
}

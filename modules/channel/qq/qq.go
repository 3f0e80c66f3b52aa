package qq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/flemzord/qqrelay/internal/channel"
	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/gateway"
	"github.com/flemzord/qqrelay/internal/security"
	"github.com/flemzord/qqrelay/pkg/message"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// ModuleID is the module ID of the QQ channel.
const ModuleID = "channel.qq"

func init() {
	core.RegisterModule(&QQ{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*QQ)(nil)
	_ core.Configurable = (*QQ)(nil)
	_ core.Provisioner  = (*QQ)(nil)
	_ core.Validator    = (*QQ)(nil)
	_ core.Starter      = (*QQ)(nil)
	_ core.Stopper      = (*QQ)(nil)
	_ core.Reloader     = (*QQ)(nil)
	_ TextSender        = (*QQ)(nil)
)

// QQ is the QQ channel module.
type QQ struct {
	config  Config
	state   atomic.Pointer[state]
	appCtx  *core.AppContext
	logger  *slog.Logger
	metrics *Metrics

	handler  *EventHandler
	receiver *WebhookReceiver

	mu       sync.Mutex
	webhooks *gateway.WebhookDispatcher
	path     string
}

// state is the configuration snapshot swapped on reload.
type state struct {
	config *Config
	client *Client
}

func newState(cfg Config) (*state, error) {
	client, err := NewClient(cfg.HTTPURL, cfg.AccessToken, cfg.SendTimeout)
	if err != nil {
		return nil, err
	}
	return &state{config: &cfg, client: client}, nil
}

// ModuleInfo implements core.Module.
func (q *QQ) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &QQ{} },
	}
}

// Configure implements core.Configurable.
func (q *QQ) Configure(node *yaml.Node) error {
	if err := node.Decode(&q.config); err != nil {
		return fmt.Errorf("qq: decode config: %w", err)
	}
	q.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (q *QQ) Provision(ctx *core.AppContext) error {
	q.config.defaults()
	q.appCtx = ctx
	q.logger = ctx.Logger

	reg, _ := core.Service[prometheus.Registerer](ctx, gateway.MetricsService)
	q.metrics = NewMetrics(reg)

	st, err := newState(q.config)
	if err != nil {
		return err
	}
	q.protect(ctx, st.config)
	q.state.Store(st)
	return nil
}

// Validate implements core.Validator.
func (q *QQ) Validate() error {
	return q.config.validate()
}

// Bind implements channel.Channel.
func (q *QQ) Bind(b channel.Bindings) error {
	if err := b.Validate(); err != nil {
		return err
	}
	q.handler = NewEventHandler(HandlerOptions{
		Config:    q.current,
		Sender:    q,
		Sessions:  b.Sessions,
		Replies:   b.Replies,
		StorePath: b.StorePath,
		Metrics:   q.metrics,
		Logger:    q.logger,
	})
	q.receiver = NewWebhookReceiver(b.Queue, q.handler, func() int64 {
		if cfg := q.current(); cfg != nil {
			return cfg.MaxBodyBytes
		}
		return 0
	}, q.metrics, q.logger)
	return nil
}

// Start implements core.Starter. It mounts the webhook on the gateway.
func (q *QQ) Start() error {
	if q.receiver == nil {
		return fmt.Errorf("qq: %w (call Bind before Start)", channel.ErrNotBound)
	}

	d, ok := core.Service[*gateway.WebhookDispatcher](q.appCtx, gateway.WebhookDispatcherService)
	if !ok {
		return errors.New("qq: gateway.webhook_dispatcher service not found (is the gateway module loaded?)")
	}

	cfg := q.current()
	q.mu.Lock()
	q.webhooks = d
	q.path = cfg.WebhookPath
	d.Register(q.path, q.receiver)
	q.mu.Unlock()

	q.logger.Info("qq channel started",
		"webhook_path", cfg.WebhookPath,
		"http_url", cfg.HTTPURL,
		"self_id", cfg.SelfID,
	)
	return nil
}

// Stop implements core.Stopper.
func (q *QQ) Stop(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.webhooks != nil {
		q.webhooks.Unregister(q.path)
		q.webhooks = nil
	}
	q.logger.Info("qq channel stopped")
	return nil
}

// Reload implements core.Reloader. The new configuration applies to every
// event handled after the swap; a changed webhook path is remounted.
func (q *QQ) Reload(ctx *core.AppContext) error {
	node, ok := ctx.ModuleConfig(ModuleID)
	if !ok {
		return errors.New("qq: configuration removed")
	}
	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return fmt.Errorf("qq: decode config: %w", err)
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	st, err := newState(cfg)
	if err != nil {
		return err
	}
	q.protect(ctx, st.config)
	q.state.Store(st)

	q.mu.Lock()
	if q.webhooks != nil && q.path != cfg.WebhookPath {
		q.webhooks.Unregister(q.path)
		q.path = cfg.WebhookPath
		q.webhooks.Register(q.path, q.receiver)
	}
	q.mu.Unlock()

	q.logger.Info("qq channel reloaded",
		"webhook_path", cfg.WebhookPath,
		"enabled", cfg.enabled(),
	)
	return nil
}

// Send implements channel.Channel. msg.To is parsed with ParseTarget.
func (q *QQ) Send(ctx context.Context, msg message.OutboundMessage) error {
	target, err := ParseTarget(msg.To)
	if err != nil {
		return err
	}
	if _, err := q.SendText(ctx, target, msg.Text); err != nil {
		q.metrics.sendFailures.Inc()
		return err
	}
	return nil
}

// SendText implements TextSender with the current client.
func (q *QQ) SendText(ctx context.Context, target Target, text string) (SendResult, error) {
	st := q.state.Load()
	if st == nil {
		return SendResult{}, errors.New("qq: channel not provisioned")
	}
	return st.client.SendText(ctx, target, text)
}

// current returns the configuration snapshot, or nil before Provision.
func (q *QQ) current() *Config {
	if st := q.state.Load(); st != nil {
		return st.config
	}
	return nil
}

// protect keeps the access token out of logs.
func (q *QQ) protect(ctx *core.AppContext, cfg *Config) {
	if cfg.AccessToken == "" {
		return
	}
	if redactor, ok := core.Service[*security.Redactor](ctx, security.RedactorService); ok {
		redactor.AddLiteral(cfg.AccessToken)
	}
}

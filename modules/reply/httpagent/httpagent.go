// Package httpagent implements the reply.http module: a reply dispatcher
// that posts each inbound context to an HTTP agent endpoint and delivers
// the replies it returns.
package httpagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/reply"
	"github.com/flemzord/qqrelay/internal/security"
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
	_ core.Reloader     = (*Module)(nil)
	_ reply.Dispatcher  = (*Module)(nil)
)

// Module is the reply.http module. It registers itself as the reply
// dispatcher so that a reload swaps the endpoint without rewiring channels.
type Module struct {
	config  Config
	current atomic.Pointer[Dispatcher]
	logger  *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "reply.http",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("httpagent: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	m.current.Store(NewDispatcher(m.config))

	if redactor, ok := core.Service[*security.Redactor](ctx, security.RedactorService); ok && m.config.Token != "" {
		redactor.AddLiteral(m.config.Token)
	}

	ctx.RegisterService(reply.ServiceName, m)
	m.logger.Info("http reply dispatcher provisioned", "url", m.config.URL)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Reload implements core.Reloader.
func (m *Module) Reload(ctx *core.AppContext) error {
	node, ok := ctx.ModuleConfig("reply.http")
	if !ok {
		return errors.New("httpagent: configuration removed")
	}
	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return fmt.Errorf("httpagent: decode config: %w", err)
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	if redactor, ok := core.Service[*security.Redactor](ctx, security.RedactorService); ok && cfg.Token != "" {
		redactor.AddLiteral(cfg.Token)
	}
	m.config = cfg
	m.current.Store(NewDispatcher(cfg))
	m.logger.Info("http reply dispatcher reloaded", "url", cfg.URL)
	return nil
}

// Dispatch implements reply.Dispatcher.
func (m *Module) Dispatch(ctx context.Context, req reply.Request) error {
	return m.current.Load().Dispatch(ctx, req)
}

// Package sqlite implements a persistent SQLite-backed session module. It
// uses modernc.org/sqlite (pure Go, no CGO) in WAL mode and prunes old
// history on a cron schedule.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/cron"
	"github.com/flemzord/qqrelay/internal/session"
	"gopkg.in/yaml.v3"
)

// ServiceName is the service under which the store is registered.
const ServiceName = session.StoreService

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

// Module provides a session.Store backed by a single SQLite database.
type Module struct {
	config    Config
	store     *Store
	scheduler *cron.Scheduler
	logger    *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "session.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := openDB(context.Background(), m.config.Path, m.config.walEnabled(), m.config.BusyTimeout)
	if err != nil {
		return err
	}
	m.store = newStore(db)

	m.scheduler = cron.NewScheduler(m.logger)
	if m.config.Retention > 0 {
		if err := m.scheduler.RegisterJob(&cron.PruneJob{
			JobName:      "session_prune",
			Store:        m.store,
			Retention:    m.config.Retention,
			ScheduleExpr: m.config.PruneSchedule,
			Logger:       m.logger,
		}); err != nil {
			_ = db.Close()
			return err
		}
	}

	ctx.RegisterService(ServiceName, m.store)
	ctx.RegisterService(session.StorePathService, m.config.Store)

	m.logger.Info("sqlite session module provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
		"retention", m.config.Retention,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.store.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Start implements core.Starter. It runs one prune pass before scheduling.
func (m *Module) Start() error {
	if m.config.Retention > 0 {
		m.scheduler.Trigger("session_prune")
	}
	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("sqlite session module stopping")
	if m.scheduler != nil {
		_ = m.scheduler.Stop(ctx)
	}
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Store returns the session store.
func (m *Module) Store() *Store {
	return m.store
}

package reload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/flemzord/qqrelay/internal/config"
	"github.com/flemzord/qqrelay/internal/core"
)

// Reloader is the part of *core.App the handler drives.
type Reloader interface {
	ReloadModules(ctx *core.AppContext) error
	ModuleIDs() []string
}

// Handler applies a configuration file to the running modules. Reloads
// come from SIGHUP, the file watcher and the admin API; they are applied
// one at a time.
type Handler struct {
	app    Reloader
	appCtx *core.AppContext
	logger *slog.Logger

	mu sync.Mutex
}

// NewHandler creates a reload handler. Reloads share the services of appCtx
// and replace only the module configurations.
func NewHandler(app Reloader, appCtx *core.AppContext, logger *slog.Logger) *Handler {
	return &Handler{
		app:    app,
		appCtx: appCtx,
		logger: logger,
	}
}

// HandleReload reads and validates configPath, then reloads the modules.
// A file that fails to load or validate leaves every module untouched.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return h.HandleReloadFromConfig(ctx, cfg)
}

// HandleReloadFromConfig reloads modules from an already-validated config.
// Modules cannot be added or removed while running; such differences are
// logged and otherwise ignored until the next restart.
func (h *Handler) HandleReloadFromConfig(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	added, removed := moduleSetDiff(h.app.ModuleIDs(), config.Resolve(cfg))
	if len(added) > 0 || len(removed) > 0 {
		h.logger.Warn("module set changed, restart required to apply",
			"added", added,
			"removed", removed,
		)
	}

	if err := h.app.ReloadModules(h.appCtx.WithModuleConfigs(cfg.Modules)); err != nil {
		return fmt.Errorf("reloading modules: %w", err)
	}

	h.logger.Info("configuration reloaded")
	return nil
}

// moduleSetDiff compares the running modules with the configured ones.
// Internal modules that are not in the registry, such as the dispatch
// queue, are never reported as removed.
func moduleSetDiff(running, configured []string) (added, removed []string) {
	for _, id := range configured {
		if !slices.Contains(running, id) {
			added = append(added, id)
		}
	}
	for _, id := range running {
		if _, registered := core.GetModule(id); !registered {
			continue
		}
		if !slices.Contains(configured, id) {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// Package app provides the entry point of the qqrelay binary: it loads the
// configuration, wires the modules together, and runs them until shutdown.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/flemzord/qqrelay/internal/config"
	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/gateway"
	"github.com/flemzord/qqrelay/internal/reload"
	"github.com/flemzord/qqrelay/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the data_dir setting and the default data directory.
	DataDir string

	// LogLevel overrides the log.level setting when non-empty.
	LogLevel string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Instance is a loaded and wired application that has not been started.
type Instance struct {
	App        *core.App
	Context    *core.AppContext
	Logger     *slog.Logger
	ConfigPath string
	Reload     *reload.Handler
}

// Build loads and validates the configuration, builds the logger and the
// shared services, loads every configured module, and wires the channels.
func Build(params RunParams) (*Instance, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if params.LogLevel != "" {
		cfg.Log.Level = params.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	redactor := security.NewRedactor()
	logger, err := newLogger(cfg.Log, params.LogOutput, redactor)
	if err != nil {
		return nil, err
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	// Registered before LoadModules: modules resolve these during Provision.
	appCtx.RegisterService(security.RedactorService, redactor)
	appCtx.RegisterService(gateway.MetricsService, registry)
	appCtx.RegisterService(gateway.ConfigPathService, cfgPath)

	application := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		return nil, err
	}

	// Wire the channels between LoadModules and Start: every channel gets
	// the dispatch queue, the session store and the reply dispatcher.
	if err := wireChannels(application, appCtx, ids, logger, registry); err != nil {
		application.Close()
		return nil, err
	}

	handler := reload.NewHandler(application, appCtx, logger)
	appCtx.RegisterService(gateway.ReloadService, func() error {
		return handler.HandleReload(context.Background(), cfgPath)
	})

	logger.Info("application built",
		"version", params.Version,
		"config", cfgPath,
		"data_dir", dataDir,
		"modules", len(ids),
	)

	return &Instance{
		App:        application,
		Context:    appCtx,
		Logger:     logger,
		ConfigPath: cfgPath,
		Reload:     handler,
	}, nil
}

// Run builds the application, starts all modules, and blocks until ctx is
// done or a shutdown signal is received. SIGHUP and file-change events
// trigger a live configuration reload for modules that implement
// core.Reloader.
func Run(ctx context.Context, params RunParams) error {
	inst, err := Build(params)
	if err != nil {
		return err
	}
	logger := inst.Logger

	if err := inst.App.Start(); err != nil {
		return err
	}

	// --- signal handling ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	// --- file watcher ---
	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	watcher := reload.NewWatcher(reload.WatcherConfig{
		ConfigPath: inst.ConfigPath,
		Logger:     logger,
	})
	if err := watcher.Start(watchCtx); err != nil {
		logger.Warn("config watcher unavailable, reload on SIGHUP only", "error", err)
	}
	defer watcher.Stop()

	// --- main event loop ---
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown requested")
			inst.App.Stop()
			logger.Info("shutdown complete")
			return nil
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, reloading configuration")
				if err := inst.Reload.HandleReload(watchCtx, inst.ConfigPath); err != nil {
					logger.Error("reload failed", "error", err)
				}
				continue
			}
			logger.Info("shutdown signal received", "signal", sig.String())
			inst.App.Stop()
			logger.Info("shutdown complete")
			return nil
		case evt := <-watcher.Events():
			logger.Info("config file changed, reloading", "path", evt.ConfigPath)
			if err := inst.Reload.HandleReload(watchCtx, inst.ConfigPath); err != nil {
				logger.Error("reload failed", "error", err)
			}
		}
	}
}

// newLogger builds the root logger. Records pass through the redactor
// before reaching the text or JSON handler.
func newLogger(cfg config.LogConfig, out io.Writer, redactor *security.Redactor) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.JSON() {
		inner = slog.NewJSONHandler(out, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor)), nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/qqrelay/qqrelay.yaml → ~/.config/qqrelay/qqrelay.yaml → ./qqrelay.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "qqrelay", "qqrelay.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "qqrelay", "qqrelay.yaml"))
	}

	candidates = append(candidates, "qqrelay.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/qqrelay if set, otherwise ~/.local/share/qqrelay.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "qqrelay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "qqrelay")
}

package config

import (
	"errors"
	"fmt"

	"github.com/flemzord/qqrelay/internal/core"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, checks that
// all referenced module IDs exist in the registry, validates the log
// settings, and requires a reply module whenever a channel is configured.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if _, err := cfg.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: invalid log format %q (supported: text, json)", cfg.Log.Format))
	}

	if len(Namespace(cfg, "channel")) > 0 && len(Namespace(cfg, "reply")) == 0 {
		errs = append(errs, errors.New("config: channel modules require a reply module (e.g. reply.http)"))
	}

	return errors.Join(errs...)
}

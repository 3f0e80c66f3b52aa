package sqlite

import (
	"fmt"
	"time"

	"github.com/flemzord/qqrelay/internal/cron"
)

const (
	defaultBusyTimeout   = 5000
	defaultDBFile        = "sessions.db"
	defaultRetention     = 30 * 24 * time.Hour
	defaultPruneSchedule = "17 * * * *"
)

// Config holds the SQLite session module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/sessions.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// Store is the store path template, expanded per agent ({agentId}).
	Store string `yaml:"store"`

	// Retention is how long inbound history is kept. Zero keeps the
	// default of 30 days; a negative value disables pruning.
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is the cron expression of the retention job.
	PruneSchedule string `yaml:"prune_schedule"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.Retention == 0 {
		c.Retention = defaultRetention
	}
	if c.PruneSchedule == "" {
		c.PruneSchedule = defaultPruneSchedule
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if err := cron.ValidateSchedule(c.PruneSchedule); err != nil {
		return fmt.Errorf("sqlite: invalid prune_schedule %q: %w", c.PruneSchedule, err)
	}
	return nil
}

package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pruner deletes records older than a cutoff and reports how many it removed.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// PruneJob removes records older than Retention from a Pruner.
type PruneJob struct {
	JobName      string // empty = "prune"
	Store        Pruner
	Retention    time.Duration
	ScheduleExpr string // empty = hourly
	Logger       *slog.Logger

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// Compile-time interface check.
var _ Job = (*PruneJob)(nil)

// Name implements Job.
func (j *PruneJob) Name() string {
	if j.JobName != "" {
		return j.JobName
	}
	return "prune"
}

// Schedule implements Job.
func (j *PruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run deletes everything older than now minus Retention. A non-positive
// retention disables pruning.
func (j *PruneJob) Run(ctx context.Context) error {
	if j.Retention <= 0 {
		return nil
	}
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	pruned, err := j.Store.Prune(ctx, now().Add(-j.Retention))
	if err != nil {
		return fmt.Errorf("cron: %s: %w", j.Name(), err)
	}
	if pruned > 0 && j.Logger != nil {
		j.Logger.Info("cron: pruned records", "job", j.Name(), "count", pruned)
	}
	return nil
}

package cron

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type fakePruner struct {
	cutoff time.Time
	calls  int
	n      int
	err    error
}

func (p *fakePruner) Prune(_ context.Context, olderThan time.Time) (int, error) {
	p.calls++
	p.cutoff = olderThan
	return p.n, p.err
}

func TestPruneJob_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakePruner{n: 3}
	job := &PruneJob{
		Store:     store,
		Retention: 24 * time.Hour,
		Logger:    slog.Default(),
		now:       func() time.Time { return now },
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := now.Add(-24 * time.Hour); !store.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", store.cutoff, want)
	}
	if job.Name() != "prune" || job.Schedule() != "0 * * * *" {
		t.Errorf("defaults = %q / %q", job.Name(), job.Schedule())
	}
}

func TestPruneJob_DisabledAndErrors(t *testing.T) {
	t.Parallel()

	store := &fakePruner{}
	disabled := &PruneJob{Store: store}
	if err := disabled.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.calls != 0 {
		t.Errorf("zero retention should not prune, got %d calls", store.calls)
	}

	failing := &PruneJob{JobName: "sessions", Store: &fakePruner{err: errors.New("locked")}, Retention: time.Hour}
	if err := failing.Run(context.Background()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()

	if err := ValidateSchedule("*/5 * * * *"); err != nil {
		t.Errorf("ValidateSchedule(valid) = %v", err)
	}
	for _, expr := range []string{"", "invalid", "60 * * * *", "* * * * * *"} {
		if err := ValidateSchedule(expr); err == nil {
			t.Errorf("ValidateSchedule(%q) = nil, want error", expr)
		}
	}
}

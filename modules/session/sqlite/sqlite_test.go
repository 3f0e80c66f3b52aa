package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/session"
	"github.com/flemzord/qqrelay/pkg/message"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()

	dir := t.TempDir()
	m := &Module{config: Config{Path: filepath.Join(dir, "test.db")}}
	m.config.defaults()

	ctx := core.NewAppContext(slog.Default(), dir)
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	t.Cleanup(func() {
		_ = m.Stop(context.Background())
	})
	return m
}

func TestModule_RegistersStore(t *testing.T) {
	dir := t.TempDir()
	m := &Module{config: Config{Store: "sessions/{agentId}"}}
	ctx := core.NewAppContext(slog.Default(), dir)
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	if m.config.Path != filepath.Join(dir, defaultDBFile) {
		t.Errorf("Path = %q, want default under data dir", m.config.Path)
	}
	store, ok := core.Service[session.Store](ctx, ServiceName)
	if !ok || store == nil {
		t.Fatal("session.store service not registered")
	}
	tmpl, _ := core.Service[string](ctx, "session.store_path")
	if tmpl != "sessions/{agentId}" {
		t.Errorf("store_path service = %q", tmpl)
	}
}

func TestStore_RecordAndUpdatedAt(t *testing.T) {
	m := newTestModule(t)
	s := m.Store()
	ctx := context.Background()

	if _, ok, err := s.UpdatedAt(ctx, "main", "agent:main:qq:group:1"); ok || err != nil {
		t.Fatalf("UpdatedAt(unknown) = %v, %v", ok, err)
	}

	base := time.UnixMilli(1_700_000_000_000)
	for i, body := range []string{"one", "two", "three"} {
		err := s.RecordInbound(ctx, "main", "agent:main:qq:group:1", message.InboundContext{
			RawBody:    body,
			ChatType:   message.ChatGroup,
			SenderID:   "42",
			MessageSid: body,
			Timestamp:  base.Add(time.Duration(i) * time.Second).UnixMilli(),
		})
		if err != nil {
			t.Fatalf("RecordInbound(%s): %v", body, err)
		}
	}

	got, ok, err := s.UpdatedAt(ctx, "main", "agent:main:qq:group:1")
	if err != nil || !ok {
		t.Fatalf("UpdatedAt = %v, %v", ok, err)
	}
	if want := base.Add(2 * time.Second); !got.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", got, want)
	}

	recent, err := s.Recent(ctx, "main", "agent:main:qq:group:1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].RawBody != "two" || recent[1].RawBody != "three" {
		t.Errorf("Recent = %+v", recent)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_UpdatedAtNeverMovesBackwards(t *testing.T) {
	m := newTestModule(t)
	s := m.Store()
	ctx := context.Background()

	late := time.UnixMilli(2_000_000)
	_ = s.RecordInbound(ctx, "main", "k", message.InboundContext{Timestamp: late.UnixMilli()})
	_ = s.RecordInbound(ctx, "main", "k", message.InboundContext{Timestamp: 1_000})

	got, _, err := s.UpdatedAt(ctx, "main", "k")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(late) {
		t.Errorf("UpdatedAt = %v, want %v", got, late)
	}
}

func TestStore_Prune(t *testing.T) {
	m := newTestModule(t)
	s := m.Store()
	ctx := context.Background()

	now := time.Now()
	_ = s.RecordInbound(ctx, "main", "old", message.InboundContext{Timestamp: now.Add(-72 * time.Hour).UnixMilli()})
	_ = s.RecordInbound(ctx, "main", "new", message.InboundContext{Timestamp: now.UnixMilli()})

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	if _, ok, _ := s.UpdatedAt(ctx, "main", "old"); ok {
		t.Error("old session should be pruned")
	}
	history, err := s.Recent(ctx, "main", "old", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("old history survived prune: %d rows", len(history))
	}
}

func TestStore_ConcurrentRecord(t *testing.T) {
	m := newTestModule(t)
	s := m.Store()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RecordInbound(ctx, "main", "k", message.InboundContext{Timestamp: int64(1000 + i)}); err != nil {
				t.Errorf("RecordInbound: %v", err)
			}
		}()
	}
	wg.Wait()

	history, err := s.Recent(ctx, "main", "k", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 20 {
		t.Errorf("history = %d rows, want 20", len(history))
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.db")

	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	c := Config{PruneSchedule: "not a schedule"}
	c.defaults()
	if err := c.validate(); err == nil {
		t.Error("expected invalid prune_schedule error")
	}

	c = Config{BusyTimeout: -1}
	c.defaults()
	if err := c.validate(); err == nil {
		t.Error("expected busy_timeout error")
	}
}

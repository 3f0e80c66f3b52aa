package session

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/qqrelay/pkg/message"
)

type entryKey struct {
	storePath  string
	sessionKey string
}

// MemoryStore is a concurrency-safe, in-memory Store. It is the default
// when no persistent session module is configured. The now function is
// injectable for deterministic testing.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]*Entry

	now func() time.Time
}

// Compile-time interface guard.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[entryKey]*Entry),
		now:     time.Now,
	}
}

// UpdatedAt implements Store.
func (s *MemoryStore) UpdatedAt(_ context.Context, storePath, sessionKey string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryKey{storePath, sessionKey}]
	if !ok {
		return time.Time{}, false, nil
	}
	return e.UpdatedAt, true, nil
}

// RecordInbound implements Store.
func (s *MemoryStore) RecordInbound(_ context.Context, storePath, sessionKey string, msg message.InboundContext) error {
	if sessionKey == "" {
		return ErrEmptySessionKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey{storePath, sessionKey}
	e, ok := s.entries[key]
	if !ok {
		e = &Entry{StorePath: storePath, SessionKey: sessionKey}
		s.entries[key] = e
	}
	ts := messageTime(msg, s.now)
	if ts.After(e.UpdatedAt) {
		e.UpdatedAt = ts
	}
	e.Messages++
	e.LastContext = msg
	return nil
}

// Get returns a copy of the entry for the session.
func (s *MemoryStore) Get(storePath, sessionKey string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryKey{storePath, sessionKey}]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Prune removes sessions not updated since olderThan and returns how many
// were removed.
func (s *MemoryStore) Prune(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for key, e := range s.entries {
		if e.UpdatedAt.Before(olderThan) {
			delete(s.entries, key)
			pruned++
		}
	}
	return pruned, nil
}

// Len implements Store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

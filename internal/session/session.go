// Package session tracks per-conversation metadata: when a session last
// received a message and the inbound context that was recorded for it.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/flemzord/qqrelay/pkg/message"
)

// DefaultStorePath is the store path template used when none is configured.
const DefaultStorePath = "{agentId}"

// Service names under which a store module publishes its store and its
// store path template.
const (
	StoreService     = "session.store"
	StorePathService = "session.store_path"
)

// ErrEmptySessionKey is returned when recording without a session key.
var ErrEmptySessionKey = errors.New("session: empty session key")

// Store persists session metadata. Implementations must be safe for
// concurrent use.
type Store interface {
	// UpdatedAt returns the time of the last recorded message in the
	// session. The bool is false when the session is unknown.
	UpdatedAt(ctx context.Context, storePath, sessionKey string) (time.Time, bool, error)

	// RecordInbound stores the inbound context and bumps the session's
	// update time to the message timestamp.
	RecordInbound(ctx context.Context, storePath, sessionKey string, msg message.InboundContext) error

	// Len returns the number of known sessions.
	Len() int
}

// Entry is the metadata kept for one session.
type Entry struct {
	StorePath   string
	SessionKey  string
	UpdatedAt   time.Time
	Messages    int
	LastContext message.InboundContext
}

// ResolveStorePath expands a store path template for an agent. The only
// placeholder is {agentId}. An empty template resolves to DefaultStorePath.
func ResolveStorePath(template, agentID string) string {
	template = strings.TrimSpace(template)
	if template == "" {
		template = DefaultStorePath
	}
	return strings.ReplaceAll(template, "{agentId}", agentID)
}

// messageTime converts an inbound Unix-millisecond timestamp, falling back
// to now when it is unset.
func messageTime(msg message.InboundContext, now func() time.Time) time.Time {
	if msg.Timestamp > 0 {
		return time.UnixMilli(msg.Timestamp)
	}
	return now()
}

// MessageTime returns the timestamp of msg, or now when it is unset.
func MessageTime(msg message.InboundContext) time.Time {
	return messageTime(msg, time.Now)
}

// Recorded is a convenience for callers that ignore the error of
// UpdatedAt: it returns a pointer to the time, or nil when unknown.
func Recorded(ctx context.Context, s Store, storePath, sessionKey string) (*time.Time, error) {
	ts, ok, err := s.UpdatedAt(ctx, storePath, sessionKey)
	if err != nil || !ok {
		return nil, err
	}
	return &ts, nil
}

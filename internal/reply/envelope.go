package reply

import (
	"fmt"
	"strings"
	"time"
)

// EnvelopeOptions controls how inbound messages are framed for the agent.
type EnvelopeOptions struct {
	// Timezone is an IANA zone name, "local", or "utc". Defaults to UTC.
	Timezone string `yaml:"timezone"`

	// IncludeElapsed adds the time since the previous message of the
	// session. Defaults to true.
	IncludeElapsed *bool `yaml:"include_elapsed"`
}

func (o EnvelopeOptions) location() *time.Location {
	switch strings.ToLower(strings.TrimSpace(o.Timezone)) {
	case "", "utc":
		return time.UTC
	case "local":
		return time.Local
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (o EnvelopeOptions) includeElapsed() bool {
	return o.IncludeElapsed == nil || *o.IncludeElapsed
}

// Validate reports an unknown timezone.
func (o EnvelopeOptions) Validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Timezone)) {
	case "", "utc", "local":
		return nil
	}
	if _, err := time.LoadLocation(o.Timezone); err != nil {
		return fmt.Errorf("reply: invalid envelope timezone %q: %w", o.Timezone, err)
	}
	return nil
}

// EnvelopeParams is the message being framed.
type EnvelopeParams struct {
	// Channel is the human-readable channel label, e.g. "QQ".
	Channel string
	// From is the conversation label, e.g. "group:123" or a sender name.
	From      string
	Timestamp time.Time
	// Previous is the last update time of the session, if known.
	Previous *time.Time
	Body     string
}

// FormatEnvelope frames a message body with its origin and time:
//
//	[QQ group:123 +5m 2026-01-02 15:04 UTC] body
//
// Empty header parts are omitted. The elapsed marker only appears when the
// previous timestamp is known and not after the current one.
func FormatEnvelope(p EnvelopeParams, opts EnvelopeOptions) string {
	parts := make([]string, 0, 4)
	if ch := strings.TrimSpace(p.Channel); ch != "" {
		parts = append(parts, ch)
	}
	if from := strings.TrimSpace(p.From); from != "" {
		parts = append(parts, from)
	}
	if opts.includeElapsed() && p.Previous != nil && !p.Timestamp.IsZero() {
		if d := p.Timestamp.Sub(*p.Previous); d >= 0 {
			parts = append(parts, "+"+formatElapsed(d))
		}
	}
	if !p.Timestamp.IsZero() {
		parts = append(parts, p.Timestamp.In(opts.location()).Format("2006-01-02 15:04 MST"))
	}

	if len(parts) == 0 {
		return p.Body
	}
	return "[" + strings.Join(parts, " ") + "] " + p.Body
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
}

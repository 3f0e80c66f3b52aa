package qq

import (
	"fmt"
	"strings"

	"github.com/flemzord/qqrelay/internal/channel"
)

// TargetKind selects the NapCat send endpoint.
type TargetKind string

// Target kinds.
const (
	TargetPrivate TargetKind = "private"
	TargetGroup   TargetKind = "group"
)

// Target is a conversation to send to.
type Target struct {
	Kind TargetKind
	ID   string
}

// String renders the target in the form accepted by ParseTarget.
func (t Target) String() string {
	if t.Kind == TargetGroup {
		return "qq:group:" + t.ID
	}
	return "qq:" + t.ID
}

// targetPrefixes are matched case-insensitively, longest first.
var targetPrefixes = []struct {
	prefix string
	kind   TargetKind
}{
	{"qq:group:", TargetGroup},
	{"group:", TargetGroup},
	{"qq:user:", TargetPrivate},
	{"user:", TargetPrivate},
	{"qq:", TargetPrivate},
}

// ParseTarget parses "qq:group:<id>", "group:<id>", "qq:user:<id>",
// "user:<id>", "qq:<id>" or a bare "<id>" (private). A target without an id
// returns an error wrapping channel.ErrInvalidTarget.
func ParseTarget(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)

	t := Target{Kind: TargetPrivate, ID: s}
	for _, p := range targetPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			t = Target{Kind: p.kind, ID: strings.TrimSpace(s[len(p.prefix):])}
			break
		}
	}
	if t.ID == "" {
		return Target{}, fmt.Errorf("qq: %w: %q", channel.ErrInvalidTarget, raw)
	}
	return t, nil
}

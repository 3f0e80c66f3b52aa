package router

import (
	"fmt"
	"strings"
)

// DefaultAgentID is the agent that receives conversations no binding claims.
const DefaultAgentID = "main"

// PeerKind distinguishes direct conversations from group conversations.
type PeerKind string

// Supported peer kinds.
const (
	PeerDirect PeerKind = "dm"
	PeerGroup  PeerKind = "group"
)

// Peer identifies the remote side of a conversation.
type Peer struct {
	Kind PeerKind
	ID   string
}

func (p Peer) String() string {
	return string(p.Kind) + ":" + p.ID
}

// DM scopes control how direct conversations map to sessions.
const (
	// DMScopePerPeer gives each direct peer its own session.
	DMScopePerPeer = "per-peer"
	// DMScopeMain folds all direct conversations of an agent into one session.
	DMScopeMain = "main"
)

// Binding assigns conversations to a specific agent.
type Binding struct {
	// Channel restricts the binding to one channel; empty matches any.
	Channel string `yaml:"channel"`
	// Peer is "<kind>:<id>"; the id may be "*" to match every peer of that
	// kind, and an empty Peer matches everything on the channel.
	Peer  string `yaml:"peer"`
	Agent string `yaml:"agent"`
}

func (b Binding) matches(channel string, peer Peer) bool {
	if b.Channel != "" && !strings.EqualFold(b.Channel, channel) {
		return false
	}
	if b.Peer == "" {
		return true
	}
	kind, id, ok := strings.Cut(b.Peer, ":")
	if !ok {
		return false
	}
	if PeerKind(kind) != peer.Kind {
		return false
	}
	return id == "*" || id == peer.ID
}

// Routes is the routing table for one channel configuration.
type Routes struct {
	DefaultAgent string    `yaml:"default_agent"`
	DMScope      string    `yaml:"dm_scope"`
	Bindings     []Binding `yaml:"bindings"`
}

// Validate reports bindings that can never match.
func (r Routes) Validate() error {
	for i, b := range r.Bindings {
		if strings.TrimSpace(b.Agent) == "" {
			return fmt.Errorf("router: binding %d: agent is required", i)
		}
		if b.Peer != "" {
			kind, id, ok := strings.Cut(b.Peer, ":")
			if !ok || id == "" || (PeerKind(kind) != PeerDirect && PeerKind(kind) != PeerGroup) {
				return fmt.Errorf("router: binding %d: invalid peer %q", i, b.Peer)
			}
		}
	}
	switch r.DMScope {
	case "", DMScopePerPeer, DMScopeMain:
	default:
		return fmt.Errorf("router: invalid dm_scope %q", r.DMScope)
	}
	return nil
}

// Route is the outcome of resolving a conversation.
type Route struct {
	AgentID    string
	Channel    string
	AccountID  string
	SessionKey string
	// MatchedBy is "binding" or "default".
	MatchedBy string
}

// ResolveAgentRoute picks the agent for a conversation and derives its
// session key. The first matching binding wins; otherwise the default agent
// is used.
func ResolveAgentRoute(routes Routes, channel, accountID string, peer Peer) Route {
	route := Route{
		AgentID:   routes.DefaultAgent,
		Channel:   channel,
		AccountID: accountID,
		MatchedBy: "default",
	}
	if route.AgentID == "" {
		route.AgentID = DefaultAgentID
	}
	for _, b := range routes.Bindings {
		if b.matches(channel, peer) {
			route.AgentID = b.Agent
			route.MatchedBy = "binding"
			break
		}
	}

	if peer.Kind == PeerDirect && routes.DMScope == DMScopeMain {
		route.SessionKey = MainSessionKey(route.AgentID)
	} else {
		route.SessionKey = BuildSessionKey(route.AgentID, channel, peer)
	}
	return route
}

// BuildSessionKey builds the canonical session key for a conversation:
//
//	agent:{agentId}:{channel}:direct:{peerId}
//	agent:{agentId}:{channel}:group:{groupId}
func BuildSessionKey(agentID, channel string, peer Peer) string {
	kind := "direct"
	if peer.Kind == PeerGroup {
		kind = "group"
	}
	return fmt.Sprintf("agent:%s:%s:%s:%s", agentID, strings.ToLower(channel), kind, peer.ID)
}

// MainSessionKey is the shared session of an agent: agent:{agentId}:main.
func MainSessionKey(agentID string) string {
	return "agent:" + agentID + ":main"
}

// ParseSessionKey splits a session key into its agent id and remainder.
// Returns empty strings when key is not an agent session key.
func ParseSessionKey(key string) (agentID, rest string) {
	after, ok := strings.CutPrefix(key, "agent:")
	if !ok {
		return "", ""
	}
	agentID, rest, ok = strings.Cut(after, ":")
	if !ok || agentID == "" || rest == "" {
		return "", ""
	}
	return agentID, rest
}

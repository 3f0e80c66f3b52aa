// Package message defines the platform-agnostic data contract between
// channels and the reply pipeline: the inbound context handed to the reply
// dispatcher, the reply payloads it produces, and outbound send requests.
package message

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDirect is a one-to-one conversation.
	ChatDirect ChatType = "direct"
	// ChatGroup is a multi-participant group conversation.
	ChatGroup ChatType = "group"
)

// ParseChatType maps loose spellings to a ChatType. Unknown values map to
// ChatDirect.
func ParseChatType(s string) ChatType {
	switch s {
	case "group", "channel", "supergroup":
		return ChatGroup
	default:
		return ChatDirect
	}
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   string   `json:"id"`
	Type ChatType `json:"type"`
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup
}

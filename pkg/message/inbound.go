package message

import "encoding/json"

// InboundContext is the normalized description of one inbound chat message,
// as handed to the reply pipeline and recorded in session history.
type InboundContext struct {
	// Body is the envelope-formatted text shown to the agent.
	Body string `json:"body"`
	// RawBody is the normalized message text without envelope.
	RawBody string `json:"raw_body"`
	// CommandBody is the text used for command detection.
	CommandBody string `json:"command_body"`

	From string `json:"from"`
	To   string `json:"to"`

	SessionKey        string   `json:"session_key"`
	AccountID         string   `json:"account_id"`
	ChatType          ChatType `json:"chat_type"`
	ConversationLabel string   `json:"conversation_label"`

	SenderName string `json:"sender_name,omitempty"`
	SenderID   string `json:"sender_id"`

	Provider string `json:"provider"`
	Surface  string `json:"surface"`

	// WasMentioned is only set for group conversations.
	WasMentioned *bool `json:"was_mentioned,omitempty"`

	MessageSid string `json:"message_sid,omitempty"`
	// Timestamp is the message time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	OriginatingChannel string `json:"originating_channel"`
	OriginatingTo      string `json:"originating_to"`

	CommandAuthorized bool `json:"command_authorized"`
}

// IsGroup reports whether the context belongs to a group conversation.
func (c *InboundContext) IsGroup() bool {
	return c.ChatType == ChatGroup
}

// Mentioned reports whether the bot was mentioned. Direct conversations
// never carry the flag and report false.
func (c *InboundContext) Mentioned() bool {
	return c.WasMentioned != nil && *c.WasMentioned
}

// MarshalJSON implements json.Marshaler. Direct conversations never carry a
// mention flag, so it is dropped for them.
func (c InboundContext) MarshalJSON() ([]byte, error) {
	if c.ChatType != ChatGroup {
		c.WasMentioned = nil
	}
	type alias InboundContext
	return json.Marshal(alias(c))
}

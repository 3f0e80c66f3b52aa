package reply

import (
	"strings"

	"github.com/flemzord/qqrelay/pkg/message"
)

// FinalizeInboundContext normalizes a context before dispatch: identifiers
// are trimmed, the chat type is canonical, RawBody and CommandBody default
// to the body, and direct chats drop the mention flag.
func FinalizeInboundContext(c message.InboundContext) message.InboundContext {
	c.From = strings.TrimSpace(c.From)
	c.To = strings.TrimSpace(c.To)
	c.SessionKey = strings.TrimSpace(c.SessionKey)
	c.AccountID = strings.TrimSpace(c.AccountID)
	c.SenderID = strings.TrimSpace(c.SenderID)
	c.SenderName = strings.TrimSpace(c.SenderName)
	c.ChatType = message.ParseChatType(string(c.ChatType))

	if c.RawBody == "" {
		c.RawBody = c.Body
	}
	if c.CommandBody == "" {
		c.CommandBody = c.RawBody
	}
	if c.ConversationLabel == "" {
		c.ConversationLabel = c.From
	}
	if c.OriginatingChannel == "" {
		c.OriginatingChannel = c.Provider
	}
	if c.OriginatingTo == "" {
		c.OriginatingTo = c.To
	}
	if c.ChatType != message.ChatGroup {
		c.WasMentioned = nil
	}
	return c
}

package qq

// ConversationKey returns the key under which events of one conversation
// are serialized: the group id for group messages, the sender id otherwise.
// It returns "" when the id is missing.
func ConversationKey(e *Event) string {
	if e.IsGroup() {
		return string(e.GroupID)
	}
	return e.SenderID()
}

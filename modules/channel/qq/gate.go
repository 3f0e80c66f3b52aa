package qq

// eventState accumulates what the gates learn about an event.
type eventState struct {
	event  *Event
	config *Config

	isGroup    bool
	senderID   string
	selfID     string
	normalized Normalized
	key        string
}

// gate admits an event or names the reason it is dropped. Gates run in
// order and may fill in state for the gates after them.
type gate struct {
	reason string
	pass   func(s *eventState) bool
}

var gates = []gate{
	{skipNotMessage, func(s *eventState) bool {
		return string(s.event.PostType) == "message"
	}},
	{skipDisabled, func(s *eventState) bool {
		return s.config != nil && s.config.enabled()
	}},
	{skipUnsupported, func(s *eventState) bool {
		switch string(s.event.MessageType) {
		case MessageTypeGroup, MessageTypePrivate:
			s.isGroup = s.event.IsGroup()
			return true
		}
		return false
	}},
	{skipNoSender, func(s *eventState) bool {
		s.senderID = s.event.SenderID()
		return s.senderID != ""
	}},
	{skipSelf, func(s *eventState) bool {
		s.selfID = s.config.SelfID
		if s.selfID == "" {
			s.selfID = string(s.event.SelfID)
		}
		return s.selfID == "" || s.senderID != s.selfID
	}},
	{skipEmptyText, func(s *eventState) bool {
		s.normalized = Normalize(s.event.Content(), s.selfID)
		return s.normalized.Text != ""
	}},
	{skipMentionMissing, func(s *eventState) bool {
		return !s.isGroup || !s.config.requireMention(true) || s.normalized.WasMentioned
	}},
	{skipNoConversation, func(s *eventState) bool {
		s.key = ConversationKey(s.event)
		return s.key != ""
	}},
}

// admit runs the gates over ev. It returns the filled state, or the reason
// of the first gate that rejected the event.
func admit(ev *Event, cfg *Config) (*eventState, string) {
	s := &eventState{event: ev, config: cfg}
	for _, g := range gates {
		if !g.pass(s) {
			return nil, g.reason
		}
	}
	return s, ""
}

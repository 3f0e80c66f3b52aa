package qq

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Event is a OneBot 11 event as posted to the webhook. Only the fields the
// channel consumes are modeled; all of them tolerate loosely-typed input.
type Event struct {
	PostType    FlexString `json:"post_type"`
	MessageType FlexString `json:"message_type"`
	UserID      FlexString `json:"user_id"`
	GroupID     FlexString `json:"group_id"`
	Message     Content    `json:"message"`
	RawMessage  Content    `json:"raw_message"`
	MessageID   FlexString `json:"message_id"`
	Sender      Sender     `json:"sender"`
	SelfID      FlexString `json:"self_id"`
	Time        Seconds    `json:"time"`
}

// Message types of OneBot 11 message events.
const (
	MessageTypeGroup   = "group"
	MessageTypePrivate = "private"
)

// IsGroup reports whether the event belongs to a group conversation.
func (e *Event) IsGroup() bool {
	return string(e.MessageType) == MessageTypeGroup
}

// SenderID returns the sender of the event.
func (e *Event) SenderID() string {
	return string(e.UserID)
}

// SenderName returns the group card of the sender, else the nickname.
func (e *Event) SenderName() string {
	if e.Sender.Card != "" {
		return string(e.Sender.Card)
	}
	return string(e.Sender.Nickname)
}

// Content returns the message content: the primary message when present,
// else the flat raw_message fallback.
func (e *Event) Content() Content {
	if e.Message.Kind != ContentNone {
		return e.Message
	}
	if e.RawMessage.Kind == ContentText {
		return e.RawMessage
	}
	return Content{}
}

// Sender carries the display attributes of the message sender.
type Sender struct {
	UserID   FlexString `json:"user_id"`
	Nickname FlexString `json:"nickname"`
	Card     FlexString `json:"card"`
}

// UnmarshalJSON ignores non-object senders.
func (s *Sender) UnmarshalJSON(data []byte) error {
	*s = Sender{}
	if !isObject(data) {
		return nil
	}
	type plain Sender
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Sender(p)
	return nil
}

// FlexString is an identifier or label that may arrive as a JSON string or
// number. Strings are trimmed; finite numbers are formatted in base 10.
// Anything else, and the empty string, decodes as absent ("").
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = FlexString(scalarString(data, true))
	return nil
}

// String returns the value.
func (f FlexString) String() string { return string(f) }

// Seconds is an epoch timestamp in seconds. Non-numeric input is absent.
type Seconds struct {
	value float64
	set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	*s = Seconds{}
	v, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	*s = Seconds{value: v, set: true}
	return nil
}

// UnixMilli returns the timestamp in milliseconds, and false when absent.
func (s Seconds) UnixMilli() (int64, bool) {
	if !s.set {
		return 0, false
	}
	return int64(s.value * 1000), true
}

// ContentKind tells which encoding a message used.
type ContentKind int

// Content encodings.
const (
	ContentNone ContentKind = iota
	ContentSegments
	ContentText
)

// Content is the message payload: a segment list, a flat string that may
// carry CQ codes, or nothing.
type Content struct {
	Kind     ContentKind
	Segments []Segment
	Text     string
}

// UnmarshalJSON implements json.Unmarshaler. Array items that are not
// objects are skipped; any other JSON type decodes as ContentNone.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = Content{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Content{Kind: ContentText, Text: s}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		segments := make([]Segment, 0, len(items))
		for _, item := range items {
			if !isObject(item) {
				continue
			}
			var seg Segment
			if err := json.Unmarshal(item, &seg); err != nil {
				continue
			}
			segments = append(segments, seg)
		}
		*c = Content{Kind: ContentSegments, Segments: segments}
	}
	return nil
}

// Segment kinds understood by the normalizer.
const (
	SegmentText    = "text"
	SegmentAt      = "at"
	SegmentMention = "mention"
	SegmentImage   = "image"
	SegmentFace    = "face"
)

// Segment is one typed fragment of a message.
type Segment struct {
	Type string
	Data SegmentData
}

// SegmentData holds the segment fields the normalizer reads.
type SegmentData struct {
	// Text is the literal content of a text segment.
	Text string
	// QQ is the target of an at/mention segment.
	QQ string
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type FlexString      `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Segment{Type: string(raw.Type)}
	if !isObject(raw.Data) {
		return nil
	}

	var d struct {
		Text json.RawMessage `json:"text"`
		QQ   FlexString      `json:"qq"`
	}
	if err := json.Unmarshal(raw.Data, &d); err != nil {
		return err
	}
	s.Data = SegmentData{
		Text: scalarString(d.Text, false),
		QQ:   string(d.QQ),
	}
	return nil
}

// scalarString renders a JSON string or finite number as text. Strings are
// trimmed when trim is set. Other JSON types yield "".
func scalarString(data []byte, trim bool) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ""
		}
		if trim {
			s = strings.TrimSpace(s)
		}
		return s
	case c == '-' || (c >= '0' && c <= '9'):
		return formatNumber(string(data))
	}
	return ""
}

// formatNumber formats a JSON number literal in base 10 without an exponent
// for integral values, keeping full precision for int64-sized ids.
func formatNumber(lit string) string {
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

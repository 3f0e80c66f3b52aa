package message

import "strings"

// ReplyPayload is one unit of reply produced by the reply pipeline.
type ReplyPayload struct {
	Text      string   `json:"text,omitempty"`
	MediaURLs []string `json:"media_urls,omitempty"`
	// MediaURL is a single attachment, used only when MediaURLs is empty.
	MediaURL string `json:"media_url,omitempty"`
}

// Attachments returns the attachment URLs of the payload.
func (p ReplyPayload) Attachments() []string {
	if len(p.MediaURLs) > 0 {
		return p.MediaURLs
	}
	if p.MediaURL != "" {
		return []string{p.MediaURL}
	}
	return nil
}

// CombinedText renders the payload as plain text: the trimmed text, then one
// "Attachment: <url>" line per attachment, separated by a blank line.
// Returns "" when there is nothing to send.
func (p ReplyPayload) CombinedText() string {
	text := strings.TrimSpace(p.Text)

	var lines []string
	for _, url := range p.Attachments() {
		if url == "" {
			continue
		}
		lines = append(lines, "Attachment: "+url)
	}
	media := strings.Join(lines, "\n")

	switch {
	case text != "" && media != "":
		return text + "\n\n" + media
	case media != "":
		return media
	default:
		return text
	}
}

// OutboundMessage is a send request addressed to a channel.
type OutboundMessage struct {
	// Channel is the module ID of the target channel, e.g. "channel.qq".
	Channel string `json:"channel"`
	// To is a channel-specific target such as "qq:group:123".
	To   string `json:"to"`
	Text string `json:"text"`
}

package qq

import "strings"

// Normalized is the plain-text view of a message.
type Normalized struct {
	Text string
	// WasMentioned is true when the message mentions selfID.
	WasMentioned bool
}

// Normalize converts message content into plain text and a mention flag.
//
// Segment lists are rendered in order: text verbatim, a mention of selfID as
// nothing (setting the flag), other mentions as "@<id>", images and faces as
// "[image]" and "[face]". Flat strings have every [CQ:at,qq=<selfID>] and
// "@<selfID>" removed. An empty selfID disables mention handling.
func Normalize(content Content, selfID string) Normalized {
	switch content.Kind {
	case ContentSegments:
		return normalizeSegments(content.Segments, selfID)
	case ContentText:
		return normalizeText(content.Text, selfID)
	}
	return Normalized{}
}

func normalizeSegments(segments []Segment, selfID string) Normalized {
	var (
		b         strings.Builder
		mentioned bool
	)
	for _, seg := range segments {
		switch seg.Type {
		case SegmentText:
			b.WriteString(seg.Data.Text)
		case SegmentAt, SegmentMention:
			target := seg.Data.QQ
			if target == "" {
				continue
			}
			if selfID != "" && target == selfID {
				mentioned = true
				continue
			}
			b.WriteString("@")
			b.WriteString(target)
		case SegmentImage:
			b.WriteString("[image]")
		case SegmentFace:
			b.WriteString("[face]")
		}
	}
	return Normalized{Text: strings.TrimSpace(b.String()), WasMentioned: mentioned}
}

func normalizeText(text, selfID string) Normalized {
	if selfID == "" {
		return Normalized{Text: strings.TrimSpace(text)}
	}

	cq := "[CQ:at,qq=" + selfID + "]"
	plain := "@" + selfID
	if !strings.Contains(text, cq) && !strings.Contains(text, plain) {
		return Normalized{Text: strings.TrimSpace(text)}
	}

	text = strings.ReplaceAll(text, cq, "")
	text = strings.ReplaceAll(text, plain, "")
	return Normalized{Text: strings.TrimSpace(text), WasMentioned: true}
}

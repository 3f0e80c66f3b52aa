package qq

import (
	"context"

	"github.com/flemzord/qqrelay/pkg/message"
)

// deliver renders a reply payload as text and sends it to target. Payloads
// with neither text nor attachments are dropped.
func deliver(ctx context.Context, sender TextSender, target Target, p message.ReplyPayload) error {
	text := p.CombinedText()
	if text == "" {
		return nil
	}
	_, err := sender.SendText(ctx, target, text)
	return err
}

package reply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flemzord/qqrelay/pkg/message"
)

func TestFormatEnvelope(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)
	prev := ts.Add(-5 * time.Minute)
	future := ts.Add(time.Hour)
	noElapsed := false

	tests := []struct {
		name   string
		params EnvelopeParams
		opts   EnvelopeOptions
		want   string
	}{
		{
			name:   "full header",
			params: EnvelopeParams{Channel: "QQ", From: "group:123", Timestamp: ts, Previous: &prev, Body: "hi"},
			want:   "[QQ group:123 +5m 2026-01-02 15:04 UTC] hi",
		},
		{
			name:   "no previous",
			params: EnvelopeParams{Channel: "QQ", From: "Alice", Timestamp: ts, Body: "hi"},
			want:   "[QQ Alice 2026-01-02 15:04 UTC] hi",
		},
		{
			name:   "previous after current",
			params: EnvelopeParams{Channel: "QQ", From: "Alice", Timestamp: ts, Previous: &future, Body: "hi"},
			want:   "[QQ Alice 2026-01-02 15:04 UTC] hi",
		},
		{
			name:   "elapsed disabled",
			params: EnvelopeParams{Channel: "QQ", From: "Alice", Timestamp: ts, Previous: &prev, Body: "hi"},
			opts:   EnvelopeOptions{IncludeElapsed: &noElapsed},
			want:   "[QQ Alice 2026-01-02 15:04 UTC] hi",
		},
		{
			name:   "nothing to frame",
			params: EnvelopeParams{Body: "raw"},
			want:   "raw",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatEnvelope(tt.params, tt.opts); got != tt.want {
				t.Errorf("FormatEnvelope() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	t.Parallel()

	for d, want := range map[time.Duration]string{
		42 * time.Second: "42s",
		3 * time.Minute:  "3m",
		5 * time.Hour:    "5h",
		49 * time.Hour:   "2d",
	} {
		if got := formatElapsed(d); got != want {
			t.Errorf("formatElapsed(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestEnvelopeOptions_Validate(t *testing.T) {
	t.Parallel()

	if err := (EnvelopeOptions{Timezone: "UTC"}).Validate(); err != nil {
		t.Errorf("UTC: %v", err)
	}
	if err := (EnvelopeOptions{Timezone: "Not/AZone"}).Validate(); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestFinalizeInboundContext(t *testing.T) {
	t.Parallel()

	mentioned := true
	got := FinalizeInboundContext(message.InboundContext{
		Body:         "[QQ Alice] hi",
		From:         " qq:42 ",
		To:           "qq:42",
		ChatType:     "dm",
		Provider:     "qq",
		WasMentioned: &mentioned,
	})

	if got.RawBody != "[QQ Alice] hi" || got.CommandBody != got.RawBody {
		t.Errorf("RawBody/CommandBody = %q/%q", got.RawBody, got.CommandBody)
	}
	if got.From != "qq:42" || got.ConversationLabel != "qq:42" {
		t.Errorf("From/ConversationLabel = %q/%q", got.From, got.ConversationLabel)
	}
	if got.ChatType != message.ChatDirect {
		t.Errorf("ChatType = %q, want direct", got.ChatType)
	}
	if got.WasMentioned != nil {
		t.Error("direct context should drop WasMentioned")
	}
	if got.OriginatingChannel != "qq" || got.OriginatingTo != "qq:42" {
		t.Errorf("Originating = %q/%q", got.OriginatingChannel, got.OriginatingTo)
	}

	// Explicit values are preserved.
	kept := FinalizeInboundContext(message.InboundContext{Body: "b", RawBody: "r", CommandBody: "c"})
	if kept.RawBody != "r" || kept.CommandBody != "c" {
		t.Errorf("explicit bodies overwritten: %+v", kept)
	}
}

func TestDeliverBuffered(t *testing.T) {
	t.Parallel()

	var delivered []string
	var failures []Kind
	req := Request{
		Deliver: func(_ context.Context, p message.ReplyPayload) error {
			if p.Text == "bad" {
				return errors.New("send failed")
			}
			delivered = append(delivered, p.Text)
			return nil
		},
		OnError: func(_ error, info DispatchInfo) {
			failures = append(failures, info.Kind)
		},
	}

	n, err := DeliverBuffered(context.Background(), req, []message.ReplyPayload{
		{Text: "one"}, {Text: "bad"}, {Text: "three"},
	})
	if err != nil {
		t.Fatalf("DeliverBuffered: %v", err)
	}
	if n != 2 || len(delivered) != 2 || delivered[1] != "three" {
		t.Errorf("delivered = %v (n=%d)", delivered, n)
	}
	if len(failures) != 1 || failures[0] != KindBlock {
		t.Errorf("failures = %v, want [block]", failures)
	}

	if _, err := DeliverBuffered(context.Background(), Request{}, nil); !errors.Is(err, ErrNoDeliver) {
		t.Errorf("missing Deliver: err = %v", err)
	}
}

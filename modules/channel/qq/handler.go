package qq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/qqrelay/internal/reply"
	"github.com/flemzord/qqrelay/internal/router"
	"github.com/flemzord/qqrelay/internal/session"
	"github.com/flemzord/qqrelay/pkg/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// channelName tags provider, surface and session keys.
	channelName = "qq"
	// envelopeChannel is the channel label shown in envelopes.
	envelopeChannel = "QQ"
	// accountID is the only account a QQ channel serves.
	accountID = "default"
)

var tracer = otel.Tracer("github.com/flemzord/qqrelay/modules/channel/qq")

// HandlerOptions configures an EventHandler.
type HandlerOptions struct {
	// Config returns the current configuration snapshot.
	Config func() *Config

	Sender   TextSender
	Sessions session.Store
	Replies  reply.Dispatcher

	// StorePath is the session store path template ({agentId}).
	StorePath string

	Metrics *Metrics
	Logger  *slog.Logger
}

// EventHandler turns an admitted event into an inbound context and hands
// it to the reply dispatcher.
type EventHandler struct {
	config    func() *Config
	sender    TextSender
	sessions  session.Store
	replies   reply.Dispatcher
	storePath string
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(opts HandlerOptions) *EventHandler {
	h := &EventHandler{
		config:    opts.Config,
		sender:    opts.Sender,
		sessions:  opts.Sessions,
		replies:   opts.Replies,
		storePath: opts.StorePath,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if h.config == nil {
		h.config = func() *Config { return nil }
	}
	if h.metrics == nil {
		h.metrics = NewMetrics(nil)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Handle processes one event. Dropped events return nil; the error of the
// reply dispatcher is returned to the caller.
func (h *EventHandler) Handle(ctx context.Context, ev *Event) error {
	ctx, span := tracer.Start(ctx, "qq.handle_event", trace.WithAttributes(
		attribute.String("qq.post_type", string(ev.PostType)),
		attribute.String("qq.message_type", string(ev.MessageType)),
		attribute.String("qq.message_id", string(ev.MessageID)),
	))
	defer span.End()

	st, reason := admit(ev, h.config())
	if reason != "" {
		h.logger.Debug("qq event skipped",
			"reason", reason,
			"post_type", ev.PostType,
			"message_type", ev.MessageType,
			"message_id", ev.MessageID,
		)
		h.metrics.skip(reason)
		span.SetAttributes(attribute.String("qq.skip_reason", reason))
		return nil
	}
	span.SetAttributes(attribute.String("qq.conversation", st.key))

	inbound, storePath := h.buildContext(ctx, st)

	if err := h.sessions.RecordInbound(ctx, storePath, inbound.SessionKey, inbound); err != nil {
		h.logger.Error("qq: failed updating session meta",
			"session_key", inbound.SessionKey,
			"error", err,
		)
	}

	target := Target{Kind: TargetPrivate, ID: st.key}
	if st.isGroup {
		target.Kind = TargetGroup
	}

	h.metrics.dispatched.Inc()
	err := h.replies.Dispatch(ctx, reply.Request{
		Context: inbound,
		Deliver: func(ctx context.Context, p message.ReplyPayload) error {
			return deliver(ctx, h.sender, target, p)
		},
		OnError: func(err error, info reply.DispatchInfo) {
			h.metrics.sendFailures.Inc()
			h.logger.Error("qq "+string(info.Kind)+" reply failed",
				"target", target.String(),
				"error", err,
			)
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return fmt.Errorf("qq: dispatch reply for %s: %w", target, err)
	}
	return nil
}

// buildContext routes the conversation, frames the text in an envelope, and
// returns the finalized inbound context with its session store path.
func (h *EventHandler) buildContext(ctx context.Context, st *eventState) (message.InboundContext, string) {
	ev := st.event

	ts := h.now()
	if ms, ok := ev.Time.UnixMilli(); ok {
		ts = time.UnixMilli(ms)
	}

	senderName := ev.SenderName()
	peer := router.Peer{Kind: router.PeerDirect, ID: st.key}
	chatType := message.ChatDirect
	from := "qq:" + st.senderID
	label := senderName
	if label == "" {
		label = "user:" + st.senderID
	}
	if st.isGroup {
		peer.Kind = router.PeerGroup
		chatType = message.ChatGroup
		from = "qq:group:" + st.key
		label = "group:" + st.key
	}

	route := router.ResolveAgentRoute(st.config.Routing, channelName, accountID, peer)
	storePath := session.ResolveStorePath(h.storePath, route.AgentID)

	previous, err := session.Recorded(ctx, h.sessions, storePath, route.SessionKey)
	if err != nil {
		h.logger.Warn("qq: failed reading session meta",
			"session_key", route.SessionKey,
			"error", err,
		)
	}

	body := reply.FormatEnvelope(reply.EnvelopeParams{
		Channel:   envelopeChannel,
		From:      label,
		Timestamp: ts,
		Previous:  previous,
		Body:      st.normalized.Text,
	}, st.config.Envelope)

	inbound := message.InboundContext{
		Body:               body,
		RawBody:            st.normalized.Text,
		CommandBody:        st.normalized.Text,
		From:               from,
		To:                 "qq:" + st.key,
		SessionKey:         route.SessionKey,
		AccountID:          route.AccountID,
		ChatType:           chatType,
		ConversationLabel:  label,
		SenderName:         senderName,
		SenderID:           st.senderID,
		Provider:           channelName,
		Surface:            channelName,
		MessageSid:         string(ev.MessageID),
		Timestamp:          ts.UnixMilli(),
		OriginatingChannel: channelName,
		OriginatingTo:      "qq:" + st.key,
		CommandAuthorized:  true,
	}
	if st.isGroup {
		mentioned := st.normalized.WasMentioned
		inbound.WasMentioned = &mentioned
	}

	return reply.FinalizeInboundContext(inbound), storePath
}

package qq

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/flemzord/qqrelay/internal/channel"
)

// eventHandler handles one parsed event.
type eventHandler interface {
	Handle(ctx context.Context, ev *Event) error
}

// WebhookReceiver is the http.Handler NapCat posts events to. It
// acknowledges every well-formed request before any processing and
// schedules the event on the queue under its conversation key.
type WebhookReceiver struct {
	queue        channel.Queue
	handler      eventHandler
	maxBodyBytes func() int64
	metrics      *Metrics
	logger       *slog.Logger
}

// NewWebhookReceiver creates a WebhookReceiver. maxBodyBytes is consulted on
// every request so that a reload takes effect immediately.
func NewWebhookReceiver(queue channel.Queue, handler eventHandler, maxBodyBytes func() int64, metrics *Metrics, logger *slog.Logger) *WebhookReceiver {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &WebhookReceiver{
		queue:        queue,
		handler:      handler,
		maxBodyBytes: maxBodyBytes,
		metrics:      metrics,
		logger:       logger,
	}
}

// ServeHTTP implements http.Handler.
func (w *WebhookReceiver) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.respond(rw, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	limit := int64(defaultMaxBodyBytes)
	if w.maxBodyBytes != nil {
		if n := w.maxBodyBytes(); n > 0 {
			limit = n
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, limit))
	if err != nil {
		w.logger.Error("qq webhook read failed", "error", err)
		w.respond(rw, http.StatusBadRequest, "Bad Request")
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		w.logger.Warn("qq webhook invalid JSON", "error", err)
		w.respond(rw, http.StatusBadRequest, "Bad Request")
		return
	}

	w.respond(rw, http.StatusOK, "ok")
	_ = http.NewResponseController(rw).Flush()

	key := ConversationKey(&ev)
	if key == "" {
		w.logger.Debug("qq webhook event without conversation",
			"post_type", ev.PostType,
			"message_type", ev.MessageType,
		)
		return
	}

	w.queue.Enqueue(key, func(ctx context.Context) error {
		return w.handler.Handle(ctx, &ev)
	})
}

func (w *WebhookReceiver) respond(rw http.ResponseWriter, code int, text string) {
	w.metrics.webhookRequest(code)
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(code)
	_, _ = io.WriteString(rw, text)
}

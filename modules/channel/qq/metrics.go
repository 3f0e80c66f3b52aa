package qq

import (
	"strconv"

	"github.com/flemzord/qqrelay/internal/gateway"
	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons reported by the event gates.
const (
	skipNotMessage     = "not_message"
	skipDisabled       = "disabled"
	skipUnsupported    = "unsupported_type"
	skipNoSender       = "no_sender"
	skipSelf           = "self"
	skipEmptyText      = "empty_text"
	skipMentionMissing = "mention_required"
	skipNoConversation = "no_conversation"
)

// Metrics are the Prometheus collectors of the QQ channel.
type Metrics struct {
	webhookRequests *prometheus.CounterVec
	skipped         *prometheus.CounterVec
	dispatched      prometheus.Counter
	sendFailures    prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when it is
// non-nil. Collectors already registered by an earlier instance are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qq",
			Name:      "webhook_requests_total",
			Help:      "Webhook requests by HTTP status code.",
		}, []string{"code"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qq",
			Name:      "events_skipped_total",
			Help:      "Events dropped by a gate, by reason.",
		}, []string{"reason"}),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qq",
			Name:      "events_dispatched_total",
			Help:      "Events handed to the reply dispatcher.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qq",
			Name:      "send_failures_total",
			Help:      "Reply deliveries rejected by NapCat or failed in transport.",
		}),
	}
	if reg == nil {
		return m
	}
	m.webhookRequests = gateway.RegisterCollector(reg, m.webhookRequests)
	m.skipped = gateway.RegisterCollector(reg, m.skipped)
	m.dispatched = gateway.RegisterCollector(reg, m.dispatched)
	m.sendFailures = gateway.RegisterCollector(reg, m.sendFailures)
	return m
}

func (m *Metrics) webhookRequest(code int) {
	m.webhookRequests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) skip(reason string) {
	m.skipped.WithLabelValues(reason).Inc()
}

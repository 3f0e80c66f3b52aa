package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON body of GET /health. It is unauthenticated and
// reports only counts, never conversation identifiers.
type HealthResponse struct {
	Status               string  `json:"status"`
	UptimeSeconds        float64 `json:"uptime_seconds"`
	PendingConversations int     `json:"pending_conversations"`
	Sessions             int     `json:"sessions"`
	Channels             int     `json:"channels"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if !g.startedAt.IsZero() {
			resp.UptimeSeconds = time.Since(g.startedAt).Round(time.Second).Seconds()
		}
		if g.queue != nil {
			resp.PendingConversations = g.queue.Len()
		}
		if g.sessions != nil {
			resp.Sessions = g.sessions.Len()
		}
		if g.channels != nil {
			resp.Channels = len(g.channels.Channels())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

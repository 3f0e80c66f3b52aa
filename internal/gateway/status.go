package gateway

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds        int64    `json:"uptime_seconds"`
	Channels             []string `json:"channels"`
	Webhooks             []string `json:"webhooks"`
	PendingConversations int      `json:"pending_conversations"`
	Sessions             int      `json:"sessions"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(g.startedAt) / time.Second),
			Channels:      []string{},
			Webhooks:      []string{},
		}
		if g.channels != nil {
			resp.Channels = g.channels.Channels()
		}
		if g.dispatcher != nil {
			resp.Webhooks = g.dispatcher.Paths()
		}
		if g.queue != nil {
			resp.PendingConversations = g.queue.Len()
		}
		if g.sessions != nil {
			resp.Sessions = g.sessions.Len()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

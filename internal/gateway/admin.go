// Package gateway provides an HTTP server for administration, monitoring,
// and webhooks. It binds to loopback by default and follows the module system pattern.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/flemzord/qqrelay/internal/channel"
	"github.com/flemzord/qqrelay/internal/config"
	"github.com/flemzord/qqrelay/internal/core"
	"github.com/flemzord/qqrelay/internal/security"
	"github.com/flemzord/qqrelay/pkg/message"
	"github.com/go-chi/chi/v5"
)

// maxAdminBody bounds admin request bodies.
const maxAdminBody = 64 << 10

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
}

// handleGetAllModules lists all compiled modules (for /api/modules).
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetConfig returns the current config with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			writeError(w, http.StatusServiceUnavailable, "config path not set")
			return
		}

		cfg, err := config.LoadMap(g.configPath)
		if err != nil {
			g.logger.Error("config read failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load config")
			return
		}

		redactor, ok := core.Service[*security.Redactor](g.appCtx, security.RedactorService)
		if !ok {
			redactor = security.NewRedactor()
		}
		redactor.RedactMap(cfg)

		writeJSON(w, http.StatusOK, cfg)
	}
}

// handleReloadConfig triggers a hot-reload of the configuration.
func (g *Gateway) handleReloadConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.reload == nil {
			writeError(w, http.StatusServiceUnavailable, "reload not available")
			return
		}
		if err := g.reload(); err != nil {
			g.logger.Error("config reload failed", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	}
}

// sendRequest is the body of POST /api/channels/{channel}/send.
type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// handleChannelSend sends an operator message through a channel. The
// channel may be named by module ID ("channel.qq") or short name ("qq").
func (g *Gateway) handleChannelSend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.channels == nil {
			writeError(w, http.StatusServiceUnavailable, "no channels configured")
			return
		}

		name := channel.QualifiedName(chi.URLParam(r, "channel"))

		var req sendRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "to and text are required")
			return
		}

		err := g.channels.Send(r.Context(), message.OutboundMessage{
			Channel: name,
			To:      req.To,
			Text:    req.Text,
		})
		switch {
		case errors.Is(err, channel.ErrNoChannel):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, channel.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, err.Error())
		case err != nil:
			g.logger.Error("admin send failed", "channel", name, "to", req.To, "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
		}
	}
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package gateway

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
)

// WebhookDispatcher routes requests to handlers registered at runtime by
// exact URL path. Channels mount their webhook receivers on it during Start.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]http.Handler
	logger   *slog.Logger
}

// NewWebhookDispatcher creates a ready-to-use dispatcher.
func NewWebhookDispatcher(logger *slog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		handlers: make(map[string]http.Handler),
		logger:   logger,
	}
}

// Register mounts h on path, replacing any previous handler.
func (d *WebhookDispatcher) Register(path string, h http.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[path]; exists {
		d.logger.Warn("webhook path re-registered", "path", path)
	}
	d.handlers[path] = h
}

// Unregister removes the handler mounted on path.
func (d *WebhookDispatcher) Unregister(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, path)
}

// Paths returns the sorted mounted paths.
func (d *WebhookDispatcher) Paths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	paths := make([]string, 0, len(d.handlers))
	for p := range d.handlers {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// ServeHTTP implements http.Handler. Requests whose path has no handler
// get a 404.
func (d *WebhookDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.RLock()
	h, ok := d.handlers[r.URL.Path]
	d.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h.ServeHTTP(w, r)
}

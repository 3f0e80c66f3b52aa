package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// authorize reports whether r carries credentials matching a. A bearer
// token and a basic pair are both accepted when both are configured.
func (a AuthConfig) authorize(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if header == "" {
		return false
	}
	if a.BearerToken != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && secretEqual(token, a.BearerToken) {
			return true
		}
	}
	if a.hasBasic() {
		user, pass, ok := r.BasicAuth()
		// Evaluate both comparisons so timing does not reveal which half failed.
		userOK := secretEqual(user, a.BasicUser)
		passOK := secretEqual(pass, a.BasicPass)
		return ok && userOK && passOK
	}
	return false
}

// authMiddleware guards the admin routes. Rejected requests are logged,
// counted when metrics is non-nil, and answered with 401 and a
// WWW-Authenticate challenge.
func authMiddleware(cfg AuthConfig, logger *slog.Logger, metrics *Metrics) func(http.Handler) http.Handler {
	challenge := `Bearer realm="qqrelay"`
	if cfg.hasBasic() {
		challenge = `Basic realm="qqrelay"`
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.authorize(r) {
				next.ServeHTTP(w, r)
				return
			}
			if metrics != nil {
				metrics.authFailures.Inc()
			}
			if logger != nil {
				logger.Warn("admin request rejected",
					"remote_addr", r.RemoteAddr,
					"method", r.Method,
					"path", r.URL.Path,
				)
			}
			w.Header().Set("WWW-Authenticate", challenge)
			writeError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

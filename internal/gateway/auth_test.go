package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	both := AuthConfig{BearerToken: "admin-token", BasicUser: "ops", BasicPass: "hunter2"}
	bearerOnly := AuthConfig{BearerToken: "admin-token"}
	basicOnly := AuthConfig{BasicUser: "ops", BasicPass: "hunter2"}

	bearer := func(tok string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
	}
	basic := func(u, p string) func(*http.Request) {
		return func(r *http.Request) { r.SetBasicAuth(u, p) }
	}

	tests := []struct {
		name      string
		cfg       AuthConfig
		setup     func(*http.Request)
		want      int
		challenge string
	}{
		{"bearer ok", bearerOnly, bearer("admin-token"), http.StatusOK, ""},
		{"bearer wrong", bearerOnly, bearer("nope"), http.StatusUnauthorized, `Bearer realm="qqrelay"`},
		{"bearer prefix only", bearerOnly, bearer(""), http.StatusUnauthorized, `Bearer realm="qqrelay"`},
		{"no header", bearerOnly, func(*http.Request) {}, http.StatusUnauthorized, `Bearer realm="qqrelay"`},
		{"basic ok", basicOnly, basic("ops", "hunter2"), http.StatusOK, ""},
		{"basic wrong pass", basicOnly, basic("ops", "wrong"), http.StatusUnauthorized, `Basic realm="qqrelay"`},
		{"basic wrong user", basicOnly, basic("root", "hunter2"), http.StatusUnauthorized, `Basic realm="qqrelay"`},
		{"bearer sent to basic-only", basicOnly, bearer("admin-token"), http.StatusUnauthorized, `Basic realm="qqrelay"`},
		{"both accept bearer", both, bearer("admin-token"), http.StatusOK, ""},
		{"both accept basic", both, basic("ops", "hunter2"), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reached := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/api/modules", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()

			authMiddleware(tt.cfg, nil, nil)(next).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if reached != (tt.want == http.StatusOK) {
				t.Errorf("handler reached = %v", reached)
			}
			if got := rr.Header().Get("WWW-Authenticate"); got != tt.challenge {
				t.Errorf("WWW-Authenticate = %q, want %q", got, tt.challenge)
			}
		})
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  AuthConfig
		want bool
	}{
		{"empty", AuthConfig{}, false},
		{"bearer only", AuthConfig{BearerToken: "tok"}, true},
		{"basic pair", AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{"basic user only", AuthConfig{BasicUser: "u"}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.IsConfigured(); got != tt.want {
			t.Errorf("%s: IsConfigured() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"bad bind", Config{Bind: "not a valid address::"}, true},
		{"half basic pair", Config{Auth: AuthConfig{BasicPass: "p"}}, true},
		{"bearer and basic", Config{Auth: AuthConfig{BearerToken: "t", BasicUser: "u", BasicPass: "p"}}, false},
	}
	for _, tt := range tests {
		cfg := tt.cfg
		cfg.defaults()
		if err := cfg.validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/qqrelay/internal/channel"
	"github.com/flemzord/qqrelay/internal/gateway"
	"github.com/flemzord/qqrelay/internal/router"
	"github.com/flemzord/qqrelay/internal/session"

	_ "github.com/flemzord/qqrelay/modules/channel/qq"
	_ "github.com/flemzord/qqrelay/modules/reply/httpagent"
)

const relayConfig = `version: "1"
log:
  level: debug
modules:
  channel.qq:
    http_url: http://127.0.0.1:3000
    access_token: napcat-secret-token
    self_id: "999"
  reply.http:
    url: http://127.0.0.1:8081/dispatch
  gateway.http:
    bind: 127.0.0.1:0
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qqrelay.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestResolveConfigPath_XDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "qqrelay")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgPath := filepath.Join(cfgDir, "qqrelay.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: \"1\""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cfgPath {
		t.Errorf("got %q, want %q", got, cfgPath)
	}
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/path")
	t.Chdir(t.TempDir())

	if _, err := ResolveConfigPath(); err == nil {
		t.Error("expected error when no config file found")
	}
}

func TestDefaultDataDir_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	got := DefaultDataDir()
	want := filepath.Join("/custom/data", "qqrelay")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultDataDir_Fallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	_ = os.Unsetenv("XDG_DATA_HOME")

	got := DefaultDataDir()
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".local", "share", "qqrelay")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuild_InvalidConfigPath(t *testing.T) {
	if _, err := Build(RunParams{ConfigPath: "/nonexistent/config.yaml"}); err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestBuild_ChannelWithoutReplyModule(t *testing.T) {
	path := writeConfig(t, `version: "1"
modules:
  channel.qq:
    http_url: http://127.0.0.1:3000
`)
	_, err := Build(RunParams{ConfigPath: path, DataDir: t.TempDir(), LogOutput: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "reply module") {
		t.Fatalf("err = %v, want reply module error", err)
	}
}

func TestBuild_InvalidLogLevelOverride(t *testing.T) {
	path := writeConfig(t, relayConfig)
	_, err := Build(RunParams{ConfigPath: path, DataDir: t.TempDir(), LogLevel: "loud", LogOutput: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestBuild_WiresChannels(t *testing.T) {
	path := writeConfig(t, relayConfig)
	var logs bytes.Buffer

	inst, err := Build(RunParams{ConfigPath: path, DataDir: t.TempDir(), LogOutput: &logs})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ids := inst.App.ModuleIDs()
	if last := ids[len(ids)-1]; last != "router.queue" {
		t.Errorf("last module = %q, want router.queue", last)
	}

	if _, ok := inst.Context.GetService(router.QueueService); !ok {
		t.Error("queue service not registered")
	}
	if _, ok := inst.Context.GetService(session.StoreService); !ok {
		t.Error("session store not registered")
	}
	d, ok := inst.Context.GetService(channel.DispatcherService)
	if !ok {
		t.Fatal("channel dispatcher not registered")
	}
	if got := d.(*channel.Dispatcher).Channels(); len(got) != 1 || got[0] != "channel.qq" {
		t.Errorf("channels = %v, want [channel.qq]", got)
	}
	if p, _ := inst.Context.GetService(gateway.ConfigPathService); p != path {
		t.Errorf("config path = %v, want %q", p, path)
	}
	if _, ok := inst.Context.GetService(gateway.ReloadService); !ok {
		t.Error("reload service not registered")
	}

	if err := inst.App.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	inst.Logger.Info("token check", "token", "napcat-secret-token")
	inst.App.Stop()

	if strings.Contains(logs.String(), "napcat-secret-token") {
		t.Error("access token leaked into logs")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	path := writeConfig(t, relayConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Run(ctx, RunParams{ConfigPath: path, DataDir: t.TempDir(), LogOutput: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// TestRelay_EndToEnd drives one private message through the running
// relay: NapCat webhook in, agent dispatch, reply sent back to NapCat.
func TestRelay_EndToEnd(t *testing.T) {
	type napcatCall struct {
		path string
		auth string
		body map[string]any
	}
	napcatCalls := make(chan napcatCall, 4)
	napcat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		napcatCalls <- napcatCall{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body}
		_, _ = io.WriteString(w, `{"status":"ok","retcode":0,"data":{"message_id":1}}`)
	}))
	t.Cleanup(napcat.Close)

	agentBodies := make(chan map[string]any, 4)
	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		agentBodies <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"replies":[{"text":"pong"}]}`)
	}))
	t.Cleanup(agent.Close)

	cfg := fmt.Sprintf(`version: "1"
modules:
  channel.qq:
    http_url: %s
    access_token: napcat-secret-token
    self_id: "999"
  reply.http:
    url: %s
  gateway.http:
    bind: 127.0.0.1:0
`, napcat.URL, agent.URL)

	inst, err := Build(RunParams{ConfigPath: writeConfig(t, cfg), DataDir: t.TempDir(), LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := inst.App.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(inst.App.Stop)

	mod, ok := inst.App.Module("gateway.http")
	if !ok {
		t.Fatal("gateway.http not loaded")
	}
	addr := mod.(*gateway.Gateway).Addr()

	event := `{"post_type":"message","message_type":"private","self_id":999,"user_id":111,
		"message_id":7,"time":1700000000,"sender":{"user_id":111,"nickname":"Alice"},
		"message":[{"type":"text","data":{"text":"ping"}}]}`
	resp, err := http.Post("http://"+addr+"/qq/webhook", "application/json", strings.NewReader(event))
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook status = %d", resp.StatusCode)
	}

	select {
	case body := <-agentBodies:
		ctx, _ := body["context"].(map[string]any)
		if ctx == nil {
			t.Fatalf("agent body missing context: %v", body)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("agent was not called")
	}

	select {
	case call := <-napcatCalls:
		if call.path != "/send_private_msg" {
			t.Errorf("napcat path = %q, want /send_private_msg", call.path)
		}
		if call.auth != "Bearer napcat-secret-token" {
			t.Errorf("napcat auth = %q", call.auth)
		}
		if call.body["message"] != "pong" {
			t.Errorf("napcat message = %v, want pong", call.body["message"])
		}
		if call.body["user_id"] != float64(111) {
			t.Errorf("napcat user_id = %v, want 111", call.body["user_id"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reply was not sent to NapCat")
	}
}

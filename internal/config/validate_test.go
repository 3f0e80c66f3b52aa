package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flemzord/qqrelay/internal/core"
	"gopkg.in/yaml.v3"
)

// stubModule is a basic module for testing.
type stubModule struct {
	id string
}

func (m *stubModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &stubModule{id: m.id} },
	}
}

func registerStub(t *testing.T, id string) {
	t.Helper()
	core.RegisterModule(&stubModule{id: id})
}

func TestValidate_Valid(t *testing.T) {
	id := "stub" + t.Name()
	registerStub(t, id)
	cfg := &Config{
		Version: "1",
		Log:     LogConfig{Level: "debug", Format: "json"},
		Modules: map[string]yaml.Node{id: {}},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	id := "stub" + t.Name()
	registerStub(t, id)

	tests := []struct {
		name    string
		cfg     *Config
		mention string
	}{
		{"missing version", &Config{Modules: map[string]yaml.Node{id: {}}}, "version"},
		{"unsupported version", &Config{Version: "99", Modules: map[string]yaml.Node{id: {}}}, "unsupported version"},
		{"no modules", &Config{Version: "1"}, "at least one module"},
		{"unknown module", &Config{Version: "1", Modules: map[string]yaml.Node{"nope.nope": {}}}, "unknown module"},
		{"bad level", &Config{Version: "1", Log: LogConfig{Level: "loud"}, Modules: map[string]yaml.Node{id: {}}}, "log level"},
		{"bad format", &Config{Version: "1", Log: LogConfig{Format: "xml"}, Modules: map[string]yaml.Node{id: {}}}, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error %q should mention %q", err, tt.mention)
			}
		})
	}
}

func TestValidate_ChannelRequiresReply(t *testing.T) {
	registerStub(t, "channel.validatetest")
	registerStub(t, "reply.validatetest")

	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{"channel.validatetest": {}},
	}
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "reply module") {
		t.Fatalf("expected reply module error, got %v", err)
	}

	cfg.Modules["reply.validatetest"] = yaml.Node{}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("QQRELAY_TEST_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "qqrelay.yaml")
	data := `version: "1"
log:
  level: ${QQRELAY_TEST_LEVEL:-warn}
modules:
  channel.qq:
    access_token: ${QQRELAY_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "warn")
	}

	node := cfg.Modules["channel.qq"]
	var qq struct {
		AccessToken string `yaml:"access_token"`
	}
	if err := node.Decode(&qq); err != nil {
		t.Fatal(err)
	}
	if qq.AccessToken != "from-env" {
		t.Errorf("access_token = %q, want %q", qq.AccessToken, "from-env")
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qqrelay.yaml")
	if err := os.WriteFile(path, []byte("version: ${QQRELAY_SURELY_UNSET_VAR}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "QQRELAY_SURELY_UNSET_VAR") {
		t.Fatalf("expected unresolved variable error, got %v", err)
	}
}

func TestResolve_Sorted(t *testing.T) {
	t.Parallel()

	cfg := &Config{Modules: map[string]yaml.Node{
		"session.sqlite": {}, "channel.qq": {}, "gateway.http": {}, "reply.http": {},
	}}
	got := Resolve(cfg)
	want := []string{"channel.qq", "gateway.http", "reply.http", "session.sqlite"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
	if ns := Namespace(cfg, "reply"); len(ns) != 1 || ns[0] != "reply.http" {
		t.Errorf("Namespace(reply) = %v", ns)
	}
}

func TestParse_RejectsUnknownTopLevelKey(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("version: \"1\"\nagents: {}\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestExpandEnv_Default(t *testing.T) {
	t.Parallel()

	out, err := expandEnv([]byte("url: ${QQRELAY_SURELY_UNSET_URL:-http://127.0.0.1:3000}"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "url: http://127.0.0.1:3000" {
		t.Errorf("expandEnv() = %q", out)
	}
}

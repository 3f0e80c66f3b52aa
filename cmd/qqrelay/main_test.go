package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/flemzord/qqrelay/pkg/app"
	"github.com/kardianos/service"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd_ListsModules(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"qqrelay dev", "channel.qq", "gateway.http", "reply.http", "session.sqlite", "telemetry.otel"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qqrelay.yaml")
	cfg := `version: "1"
modules:
  channel.qq:
    http_url: http://127.0.0.1:3000
  reply.http:
    url: http://127.0.0.1:8081/dispatch
`
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, "config", "check", path)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK (2 modules)") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigCheck_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qqrelay.yaml")
	if err := os.WriteFile(path, []byte("version: \"2\"\nmodules: {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "config", "check", path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestServiceConfig_Arguments(t *testing.T) {
	cfg := serviceConfig(app.RunParams{ConfigPath: "/etc/qqrelay.yaml", LogLevel: "debug"})
	want := []string{"service", "run", "--config", "/etc/qqrelay.yaml", "--log-level", "debug"}
	if !slices.Equal(cfg.Arguments, want) {
		t.Errorf("Arguments = %v, want %v", cfg.Arguments, want)
	}
	if cfg.Name != "qqrelay" {
		t.Errorf("Name = %q", cfg.Name)
	}
}

func TestProgram_StopBeforeStart(t *testing.T) {
	p := &program{}
	if err := p.Stop(nil); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestProgram_StartFailureSurfacesOnStop(t *testing.T) {
	p := &program{params: app.RunParams{ConfigPath: "/nonexistent/qqrelay.yaml"}}
	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(nil); err == nil {
		t.Error("second Start should fail while running")
	}
	if err := p.Stop(nil); err == nil {
		t.Error("Stop should report the run error")
	}
}

func TestStatusString(t *testing.T) {
	tests := map[service.Status]string{
		service.StatusRunning: "running",
		service.StatusStopped: "stopped",
		service.StatusUnknown: "unknown",
	}
	for status, want := range tests {
		if got := statusString(status); got != want {
			t.Errorf("statusString(%v) = %q, want %q", status, got, want)
		}
	}
}

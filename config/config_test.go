package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_FullConfig(t *testing.T) {
	data := []byte(`
servers:
  - name: financial-data
    transport: process
    command: python
    args: ["-m", "finserver"]
    env:
      API_KEY: secret
  - name: web
    transport: stream
    url: http://localhost:8080/mcp
tools:
  block:
    - mcp__web__delete_everything
execution:
  timeout: 30s
  max_output_bytes: 1024
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(cfg.Servers))
	}
	if cfg.Servers[0].Command != "python" || len(cfg.Servers[0].Args) != 2 {
		t.Errorf("unexpected process server: %+v", cfg.Servers[0])
	}
	if cfg.Servers[0].Env["API_KEY"] != "secret" {
		t.Errorf("env not parsed: %+v", cfg.Servers[0].Env)
	}
	if cfg.Servers[1].Transport != TransportStream || cfg.Servers[1].URL == "" {
		t.Errorf("unexpected stream server: %+v", cfg.Servers[1])
	}
	if got := cfg.Execution.TimeoutDuration(); got != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", got)
	}
	if cfg.Execution.MaxOutputBytes != 1024 {
		t.Errorf("max_output_bytes = %d, want 1024", cfg.Execution.MaxOutputBytes)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`servers: []`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Execution.TimeoutDuration(); got != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", got, DefaultTimeout)
	}
	if cfg.Execution.MaxOutputBytes != DefaultMaxOutputBytes {
		t.Errorf("max_output_bytes = %d, want %d",
			cfg.Execution.MaxOutputBytes, DefaultMaxOutputBytes)
	}
}

func TestParse_TransportDefaultsToProcess(t *testing.T) {
	cfg, err := Parse([]byte(`
servers:
  - name: local
    command: server-bin
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Servers[0].Transport != TransportProcess {
		t.Errorf("transport = %q, want %q", cfg.Servers[0].Transport, TransportProcess)
	}
}

func TestParse_DurationForms(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{"duration string", "execution: {timeout: 2m}", 2 * time.Minute},
		{"seconds string", "execution: {timeout: 45s}", 45 * time.Second},
		{"bare integer is seconds", "execution: {timeout: 90}", 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := cfg.Execution.TimeoutDuration(); got != tt.want {
				t.Errorf("timeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			"process without command",
			"servers: [{name: a, transport: process}]",
		},
		{
			"stream without url",
			"servers: [{name: a, transport: stream}]",
		},
		{
			"unknown transport",
			"servers: [{name: a, transport: carrier-pigeon, command: x}]",
		},
		{
			"missing server name",
			"servers: [{transport: process, command: x}]",
		},
		{
			"duplicate server name",
			"servers: [{name: a, command: x}, {name: a, command: y}]",
		},
		{
			"allow and block both set",
			"tools: {allow: [mcp__a__x], block: [mcp__a__y]}",
		},
		{
			"negative max output",
			"execution: {max_output_bytes: -1}",
		},
		{
			"bad duration",
			"execution: {timeout: soon}",
		},
		{
			"not yaml",
			"{{{",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestToolFilter_Allows(t *testing.T) {
	tests := []struct {
		name   string
		filter ToolFilter
		tool   string
		want   bool
	}{
		{"empty filter passes everything", ToolFilter{}, "mcp__a__x", true},
		{"allow includes listed", ToolFilter{Allow: []string{"mcp__a__x"}}, "mcp__a__x", true},
		{"allow excludes unlisted", ToolFilter{Allow: []string{"mcp__a__x"}}, "mcp__a__y", false},
		{"block excludes listed", ToolFilter{Block: []string{"mcp__a__x"}}, "mcp__a__x", false},
		{"block includes unlisted", ToolFilter{Block: []string{"mcp__a__x"}}, "mcp__a__y", true},
		{"allow is exact match", ToolFilter{Allow: []string{"mcp__a__x"}}, "mcp__a__x2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Allows(tt.tool); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.tool, got, tt.want)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("execution: {timeout: 5s}"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Execution.TimeoutDuration(); got != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

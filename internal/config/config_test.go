package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileLoad(t *testing.T) {
	t.Setenv("OG_TEST_TOKEN", "hf_secret")

	path := writeConfig(t, `
locale = "en_US"
timeout = 5
max_workers = 2

[cache]
use_cache = true
time_to_live = 60

[data]
local_dir = "/srv/opengenes"
token = "${OG_TEST_TOKEN}"

[server]
transport = "http"
port = 8080
huge_query_tool = true

[logger]
console_level = "debug"
console_output = "stdout"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.QueryTimeout() != 5*time.Second {
		t.Errorf("timeout = %s", cfg.QueryTimeout())
	}
	if !cfg.Cache.UseCache || cfg.Cache.MaxAge != time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Data.LocalDir != "/srv/opengenes" || cfg.Data.Token != "hf_secret" {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Data.DatabaseFile != "open_genes.sqlite" {
		t.Errorf("default database file lost: %q", cfg.Data.DatabaseFile)
	}
	if cfg.Server.Transport != "http" || cfg.Addr() != "0.0.0.0:8080" || !cfg.Server.HugeQueryTool {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.Prefix != "opengenes_" {
		t.Errorf("prefix = %q", cfg.Server.Prefix)
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := NewConfig()
	if cfg.Server.Transport != want.Server.Transport || cfg.Timeout != want.Timeout {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENGENES_TRANSPORT", "sse")
	t.Setenv("OPENGENES_PORT", "9000")
	t.Setenv("OPENGENES_OFFLINE", "true")

	cfg, err := Load(writeConfig(t, "[server]\ntransport = \"http\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Transport != "sse" || cfg.Server.Port != 9000 || !cfg.Data.Offline {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Server, cfg.Data)
	}
}

func TestInvalidEnvOverride(t *testing.T) {
	t.Setenv("OPENGENES_PORT", "not-a-port")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown transport", func(c *Config) { c.Server.Transport = "grpc" }, false},
		{"unknown console output", func(c *Config) { c.Logging.ConsoleOutput = "syslog" }, false},
		{"stdout with stdio", func(c *Config) { c.Logging.ConsoleOutput = "stdout" }, false},
		{"stdout with http", func(c *Config) {
			c.Logging.ConsoleOutput = "stdout"
			c.Server.Transport = "http"
		}, true},
		{"no database file", func(c *Config) { c.Data.DatabaseFile = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestGetSecretFromEnv(t *testing.T) {
	t.Setenv("OG_SECRET", "value")

	if got := getSecretFromEnv("${OG_SECRET}"); got != "value" {
		t.Errorf("got %q", got)
	}
	if got := getSecretFromEnv("literal"); got != "literal" {
		t.Errorf("got %q", got)
	}
	if got := getSecretFromEnv("${OG_UNSET_SECRET}"); got != "" {
		t.Errorf("got %q", got)
	}
}

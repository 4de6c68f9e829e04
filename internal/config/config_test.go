package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foxzi/leadmail/internal/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: ":9000"
  write_timeout: 2m
  cors_origins: ["https://app.example.com"]

storage:
  driver: bolt
  path: "/tmp/leads.bolt"

campaign:
  concurrency: 4
  async: true

mailer:
  connect_timeout: 5s
  helo_name: "mail.example.com"
  dkim:
    enabled: true
    domain: "example.com"
    key_file: "/etc/leadmail/dkim.pem"

security:
  secret_key: "0123456789abcdef0123"

metrics:
  enabled: true
  listen_addr: ":9191"

logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("Server.ListenAddr = %v, want :9000", cfg.Server.ListenAddr)
	}
	if cfg.Server.WriteTimeout != 2*time.Minute {
		t.Errorf("Server.WriteTimeout = %v, want 2m", cfg.Server.WriteTimeout)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Storage.Driver != store.DriverBolt || cfg.Storage.Path != "/tmp/leads.bolt" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Campaign.Concurrency != 4 || !cfg.Campaign.Async {
		t.Errorf("Campaign = %+v", cfg.Campaign)
	}
	if cfg.Mailer.ConnectTimeout != 5*time.Second {
		t.Errorf("Mailer.ConnectTimeout = %v, want 5s", cfg.Mailer.ConnectTimeout)
	}
	if cfg.Mailer.GreetingTimeout != 15*time.Second {
		t.Errorf("Mailer.GreetingTimeout = %v, want default 15s", cfg.Mailer.GreetingTimeout)
	}
	if cfg.Mailer.DKIM.Selector != "default" {
		t.Errorf("Mailer.DKIM.Selector = %v, want default", cfg.Mailer.DKIM.Selector)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %v, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Storage.Driver != store.DriverSQLite {
		t.Errorf("Storage.Driver = %v, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "data/leadmail.db" {
		t.Errorf("Storage.Path = %v", cfg.Storage.Path)
	}
	if cfg.Campaign.Concurrency != 1 {
		t.Errorf("Campaign.Concurrency = %v, want 1", cfg.Campaign.Concurrency)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %v, want json", cfg.Logging.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LEADMAIL_LISTEN_ADDR", ":7000")
	t.Setenv("LEADMAIL_STORAGE_DRIVER", "memory")
	t.Setenv("LEADMAIL_LOG_LEVEL", "warn")

	path := writeConfig(t, `
server:
  listen_addr: ":9000"
storage:
  driver: sqlite
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.ListenAddr != ":7000" {
		t.Errorf("Server.ListenAddr = %v, want :7000", cfg.Server.ListenAddr)
	}
	if cfg.Storage.Driver != store.DriverMemory {
		t.Errorf("Storage.Driver = %v, want memory", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "" {
		t.Errorf("Storage.Path = %v, want empty for memory", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %v, want warn", cfg.Logging.Level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("LEADMAIL_SECRET_KEY=from-dotenv-0123456789\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEADMAIL_SECRET_KEY", "")
	os.Unsetenv("LEADMAIL_SECRET_KEY")

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.SecretKey != "from-dotenv-0123456789" {
		t.Errorf("Security.SecretKey = %q", cfg.Security.SecretKey)
	}

	if err := LoadDotEnv(filepath.Join(dir, "nope.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil ||
		!strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("missing file error = %v", err)
	}

	bad := writeConfig(t, "server: [unclosed")
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("parse error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown driver",
			content: "storage:\n  driver: postgres\n",
			wantErr: "storage.driver",
		},
		{
			name:    "negative concurrency",
			content: "campaign:\n  concurrency: -2\n",
			wantErr: "campaign.concurrency",
		},
		{
			name:    "dkim without domain",
			content: "mailer:\n  dkim:\n    enabled: true\n    key_file: k.pem\n",
			wantErr: "mailer.dkim.domain",
		},
		{
			name:    "dkim without key",
			content: "mailer:\n  dkim:\n    enabled: true\n    domain: example.com\n",
			wantErr: "mailer.dkim.key_file",
		},
		{
			name:    "short secret",
			content: "security:\n  secret_key: short\n",
			wantErr: "security.secret_key",
		},
		{
			name:    "metrics on api port",
			content: "server:\n  listen_addr: \":9090\"\nmetrics:\n  enabled: true\n",
			wantErr: "metrics.listen_addr",
		},
		{
			name:    "bad log level",
			content: "logging:\n  level: loud\n",
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			content: "logging:\n  format: xml\n",
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "invalid configuration") || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/foxzi/leadmail/internal/store"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "LEADMAIL_"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Campaign CampaignConfig `yaml:"campaign"`
	Mailer   MailerConfig   `yaml:"mailer"`
	Security SecurityConfig `yaml:"security"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	// MaxUploadBytes limits lead file uploads
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type CampaignConfig struct {
	Concurrency int  `yaml:"concurrency"`
	Async       bool `yaml:"async"`
}

type MailerConfig struct {
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	GreetingTimeout time.Duration `yaml:"greeting_timeout"`
	SocketTimeout   time.Duration `yaml:"socket_timeout"`
	HeloName        string        `yaml:"helo_name"`
	DKIM            DKIMConfig    `yaml:"dkim"`
}

type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Domain   string `yaml:"domain"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
}

type SecurityConfig struct {
	// SecretKey seals the stored SMTP password when set
	SecretKey string `yaml:"secret_key"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path, applies LEADMAIL_* overrides and
// defaults, then validates. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg, os.LookupEnv)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	set("LISTEN_ADDR", &cfg.Server.ListenAddr)
	set("STORAGE_DRIVER", &cfg.Storage.Driver)
	set("STORAGE_PATH", &cfg.Storage.Path)
	set("SECRET_KEY", &cfg.Security.SecretKey)
	set("DKIM_DOMAIN", &cfg.Mailer.DKIM.Domain)
	set("DKIM_SELECTOR", &cfg.Mailer.DKIM.Selector)
	set("DKIM_KEY_FILE", &cfg.Mailer.DKIM.KeyFile)
	set("LOG_LEVEL", &cfg.Logging.Level)
	set("LOG_FORMAT", &cfg.Logging.Format)
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Synchronous campaigns answer only after the last recipient
		cfg.Server.WriteTimeout = 10 * time.Minute
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 2 * time.Minute
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = store.DriverSQLite
	}
	if cfg.Storage.Path == "" {
		switch cfg.Storage.Driver {
		case store.DriverSQLite:
			cfg.Storage.Path = "data/leadmail.db"
		case store.DriverBolt:
			cfg.Storage.Path = "data/leadmail.bolt"
		}
	}

	if cfg.Campaign.Concurrency == 0 {
		cfg.Campaign.Concurrency = 1
	}

	if cfg.Mailer.ConnectTimeout == 0 {
		cfg.Mailer.ConnectTimeout = 15 * time.Second
	}
	if cfg.Mailer.GreetingTimeout == 0 {
		cfg.Mailer.GreetingTimeout = 15 * time.Second
	}
	if cfg.Mailer.SocketTimeout == 0 {
		cfg.Mailer.SocketTimeout = 15 * time.Second
	}
	if cfg.Mailer.DKIM.Selector == "" {
		cfg.Mailer.DKIM.Selector = "default"
	}

	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks a loaded configuration
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case store.DriverMemory:
	case store.DriverSQLite, store.DriverBolt:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be one of memory, sqlite, bolt; got %q", c.Storage.Driver))
	}

	if c.Campaign.Concurrency < 1 {
		errs = append(errs, errors.New("campaign.concurrency must be at least 1"))
	}

	if c.Mailer.DKIM.Enabled {
		if c.Mailer.DKIM.Domain == "" {
			errs = append(errs, errors.New("mailer.dkim.domain is required when DKIM is enabled"))
		}
		if c.Mailer.DKIM.KeyFile == "" {
			errs = append(errs, errors.New("mailer.dkim.key_file is required when DKIM is enabled"))
		}
	}

	if c.Security.SecretKey != "" && len(c.Security.SecretKey) < 16 {
		errs = append(errs, errors.New("security.secret_key must be at least 16 characters"))
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == c.Server.ListenAddr {
		errs = append(errs, errors.New("metrics.listen_addr must differ from server.listen_addr"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not supported", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not supported", c.Logging.Format))
	}

	return errors.Join(errs...)
}

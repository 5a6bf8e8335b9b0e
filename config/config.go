package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Policy     PolicyConfig     `yaml:"policy"`
	Email      EmailConfig      `yaml:"email"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"LAUNDRY_PORT"`
	PublicURL       string  `yaml:"public_url" env:"LAUNDRY_PUBLIC_URL"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"LAUNDRY_DATABASE_DRIVER"`
	DSN                    string `yaml:"dsn" env:"LAUNDRY_DATABASE_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// AuthConfig configures verification of staff tokens issued by the identity provider.
type AuthConfig struct {
	JWTSecret     string   `yaml:"jwt_secret" env:"LAUNDRY_JWT_SECRET"`
	Issuer        string   `yaml:"issuer" env:"LAUNDRY_JWT_ISSUER"`
	AllowedEmails []string `yaml:"allowed_emails" env:"LAUNDRY_ALLOWED_EMAILS" envSeparator:","`
}

// PolicyConfig holds the abuse filter thresholds and identifier retry budget.
type PolicyConfig struct {
	RateLimitWindowMinutes int `yaml:"rate_limit_window_minutes"`
	RateLimitMax           int `yaml:"rate_limit_max"`
	DuplicateWindowMinutes int `yaml:"duplicate_window_minutes"`
	AnomalyWindowMinutes   int `yaml:"anomaly_window_minutes"`
	AnomalyThreshold       int `yaml:"anomaly_threshold"`
	IDMaxAttempts          int `yaml:"id_max_attempts"`

	RateLimitWindow time.Duration `yaml:"-"`
	DuplicateWindow time.Duration `yaml:"-"`
	AnomalyWindow   time.Duration `yaml:"-"`
}

// EmailConfig configures the transactional email API.
type EmailConfig struct {
	APIBaseURL     string `yaml:"api_base_url" env:"LAUNDRY_EMAIL_API_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PushConfig holds the VAPID keys for staff web push alerts.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"LAUNDRY_VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"LAUNDRY_VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the alert worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// Load reads the configuration from the given path, then applies environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied and no file backing it.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyEnv() error {
	for _, section := range []any{&cfg.Server, &cfg.Database, &cfg.Auth, &cfg.Email, &cfg.Push} {
		if err := env.Parse(section); err != nil {
			return fmt.Errorf("parse environment: %w", err)
		}
	}
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:3000"
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	p := &cfg.Policy
	if p.RateLimitWindowMinutes <= 0 {
		p.RateLimitWindowMinutes = 24 * 60
	}
	if p.RateLimitMax <= 0 {
		p.RateLimitMax = 1
	}
	if p.DuplicateWindowMinutes <= 0 {
		p.DuplicateWindowMinutes = 10
	}
	if p.AnomalyWindowMinutes <= 0 {
		p.AnomalyWindowMinutes = 15
	}
	if p.AnomalyThreshold <= 0 {
		p.AnomalyThreshold = 5
	}
	if p.IDMaxAttempts <= 0 {
		p.IDMaxAttempts = 8
	}
	p.RateLimitWindow = time.Duration(p.RateLimitWindowMinutes) * time.Minute
	p.DuplicateWindow = time.Duration(p.DuplicateWindowMinutes) * time.Minute
	p.AnomalyWindow = time.Duration(p.AnomalyWindowMinutes) * time.Minute

	if cfg.Email.APIBaseURL == "" {
		cfg.Email.APIBaseURL = "https://api.resend.com"
	}
	if cfg.Email.TimeoutSeconds <= 0 {
		cfg.Email.TimeoutSeconds = 10
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Database           DatabaseConfig   `json:"database"`
	JWTSecret          string           `json:"jwt_secret"`
	Port               int              `json:"port"`
	PublicBaseURL      string           `json:"public_base_url"`
	Mail               MailConfig       `json:"mail"`
	LogConfig          logger.LogConfig `json:"log_config"`
	RateLimit          RateLimitConfig  `json:"rate_limit"`
	PendingCleanupCron string           `json:"pending_cleanup_cron"`
	CORSAllowlist      []string         `json:"cors_allowlist"`
	MetricsEnabled     bool             `json:"metrics_enabled"`
	MetricsListen      string           `json:"metrics_listen"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// URL returns the connection string in URL form, which both lib/pq and
// golang-migrate accept.
func (c DatabaseConfig) URL() string {
	if c.DSN != "" {
		return c.DSN
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, port, c.DBName, sslmode)
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type RateLimitConfig struct {
	PerSecond float64 `json:"per_second"`
	Burst     int     `json:"burst"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.Mail.Host == "" || cfg.Mail.Port == 0 || strings.TrimSpace(cfg.Mail.From) == "" {
		return fmt.Errorf("mail.host/port/from are required")
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	}
	cfg.PublicBaseURL = strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.RateLimit.PerSecond <= 0 {
		cfg.RateLimit.PerSecond = 1
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}
	if cfg.MetricsListen == "" {
		cfg.MetricsListen = "127.0.0.1:9091"
	}
	if cfg.PendingCleanupCron == "" {
		cfg.PendingCleanupCron = "*/10 * * * *"
	}
	return nil
}

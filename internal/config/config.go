// Package config loads console configuration.
//
// Configuration is read from a YAML file (with ${VAR} expansion) and falls
// back to environment variables when the file is missing:
//
//	cfg := config.LoadOrEnv("config.yaml")
//	db, err := config.InitDB(cfg.Database)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// APIConfig describes the reconciliation API the console talks to.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// CSRFPage is fetched to discover the CSRF token when CSRFToken is empty.
	CSRFPage   string `yaml:"csrf_page"`
	CSRFToken  string `yaml:"csrf_token"`
	CSRFCookie string `yaml:"csrf_cookie"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			Timeout:    15 * time.Second,
			CSRFPage:   "/admin/reconciliation/manual/",
			CSRFCookie: "csrftoken",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "console.db",
		},
		Session: SessionConfig{
			IdleTimeout:   30 * time.Minute,
			SweepSchedule: "@every 5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds a config from environment variables only.
func LoadFromEnv() *Config {
	def := Default()
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", def.Server.Port),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", def.Server.AllowedOrigins),
		},
		API: APIConfig{
			BaseURL:    getEnv("RECON_API_URL", def.API.BaseURL),
			Timeout:    getEnvDuration("RECON_API_TIMEOUT", def.API.Timeout),
			CSRFPage:   getEnv("RECON_CSRF_PAGE", def.API.CSRFPage),
			CSRFToken:  os.Getenv("RECON_CSRF_TOKEN"),
			CSRFCookie: getEnv("RECON_CSRF_COOKIE", def.API.CSRFCookie),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", def.Database.Driver),
			DSN:    getEnv("DB_DSN", def.Database.DSN),
		},
		Session: SessionConfig{
			IdleTimeout:   getEnvDuration("SESSION_IDLE_TIMEOUT", def.Session.IdleTimeout),
			SweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", def.Session.SweepSchedule),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", def.Logging.Level),
			Format: getEnv("LOG_FORMAT", def.Logging.Format),
		},
	}
	return cfg
}

// LoadOrEnv tries the YAML file first and falls back to the environment.
func LoadOrEnv(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

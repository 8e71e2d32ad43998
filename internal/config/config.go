// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	DBPath         string
	PublicBaseURL  string
	AllowedOrigins []string
	GRPCHealthPort string // empty disables the gRPC health server
	LogLevel       slog.Level
	Agent          AgentConfig
	Submit         SubmitConfig
	SMTP           SMTPConfig
}

// AgentConfig controls the simulated agent.
type AgentConfig struct {
	Delay         time.Duration
	ResultTTL     time.Duration
	SweepInterval time.Duration
}

// SubmitConfig controls the submission workflow.
type SubmitConfig struct {
	PollAttempts       int
	PollInterval       time.Duration
	NotifyRequiresData bool
}

// SMTPConfig holds outgoing mail settings. An empty Host disables SMTP.
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	From     string
	FromName string
}

// Enabled reports whether an SMTP relay is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	port := getEnv("PORT", "3001")

	cfg := &Config{
		Port:           port,
		DBPath:         getEnv("DB_PATH", "./data/contactform.db"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		GRPCHealthPort: getEnv("GRPC_HEALTH_PORT", ""),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		Agent: AgentConfig{
			Delay:         getEnvDuration("AGENT_DELAY", 30*time.Second),
			ResultTTL:     getEnvDuration("AGENT_RESULT_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("AGENT_SWEEP_INTERVAL", 5*time.Minute),
		},
		Submit: SubmitConfig{
			PollAttempts:       getEnvInt("POLL_ATTEMPTS", 10),
			PollInterval:       getEnvDuration("POLL_INTERVAL", 5*time.Second),
			NotifyRequiresData: getEnvBool("NOTIFY_REQUIRE_DATA", false),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("EMAIL_HOST", ""),
			Port:     getEnvInt("EMAIL_PORT", 465),
			Secure:   getEnvBool("EMAIL_SECURE", false),
			User:     getEnv("EMAIL_USER", ""),
			Password: getEnv("EMAIL_PASSWORD", ""),
			From:     getEnv("EMAIL_FROM", ""),
			FromName: getEnv("EMAIL_FROM_NAME", "Your Application"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Agent.Delay < 0 {
		return fmt.Errorf("AGENT_DELAY must be >= 0")
	}
	if c.Agent.ResultTTL <= 0 {
		return fmt.Errorf("AGENT_RESULT_TTL must be > 0")
	}
	if c.Submit.PollAttempts <= 0 {
		return fmt.Errorf("POLL_ATTEMPTS must be > 0")
	}
	if c.Submit.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must be >= 0")
	}
	if c.SMTP.Enabled() && c.SMTP.From == "" {
		return fmt.Errorf("EMAIL_FROM is required when EMAIL_HOST is set")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("EMAIL_PORT must be a valid port")
	}
	return nil
}

// IsDevelopment returns true if the public URL points at the local machine.
func (c *Config) IsDevelopment() bool {
	return c.PublicBaseURL == "" ||
		strings.Contains(c.PublicBaseURL, "localhost") ||
		strings.Contains(c.PublicBaseURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the service
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Platform client settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Session storage settings
	Session SessionConfig `yaml:"session" json:"session"`

	// Two-factor challenge settings
	Challenge ChallengeConfig `yaml:"challenge" json:"challenge"`

	// Stats counter settings
	Stats StatsConfig `yaml:"stats" json:"stats"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// InstagramConfig holds platform client configuration
type InstagramConfig struct {
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// SessionConfig holds session storage configuration
type SessionConfig struct {
	// Backend selects the store chain: "file", "keyring" or "encrypted"
	Backend   string `yaml:"backend" json:"backend"`
	Directory string `yaml:"directory" json:"directory"`

	// DefaultUsername is used by session endpoints when no username is given
	DefaultUsername string `yaml:"default_username" json:"default_username"`
}

// ChallengeConfig holds two-factor challenge configuration
type ChallengeConfig struct {
	TTL         time.Duration `yaml:"ttl" json:"ttl"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`

	// RedisAddr switches the challenge store to Redis when non-empty
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
}

// StatsConfig holds stats counter configuration
type StatsConfig struct {
	ResetInterval time.Duration `yaml:"reset_interval" json:"reset_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 10 * time.Second,
		},
		Instagram: InstagramConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			RequestTimeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Backend:   "file",
			Directory: "./sessions",
		},
		Challenge: ChallengeConfig{
			TTL:         5 * time.Minute,
			MaxAttempts: 3,
		},
		Stats: StatsConfig{
			ResetInterval: time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("IGPROXY_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("IGPROXY_PORT"); port != "" {
		var val int
		fmt.Sscanf(port, "%d", &val)
		if val > 0 {
			c.Server.Port = val
		}
	}

	if userAgent := os.Getenv("IGPROXY_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}
	if timeout := os.Getenv("IGPROXY_REQUEST_TIMEOUT"); timeout != "" {
		if val, err := time.ParseDuration(timeout); err == nil && val > 0 {
			c.Instagram.RequestTimeout = val
		}
	}

	if backend := os.Getenv("IGPROXY_SESSION_BACKEND"); backend != "" {
		c.Session.Backend = backend
	}
	if dir := os.Getenv("IGPROXY_SESSION_DIR"); dir != "" {
		c.Session.Directory = dir
	}
	if username := os.Getenv("IGPROXY_DEFAULT_USERNAME"); username != "" {
		c.Session.DefaultUsername = username
	}

	if ttl := os.Getenv("IGPROXY_CHALLENGE_TTL"); ttl != "" {
		if val, err := time.ParseDuration(ttl); err == nil && val > 0 {
			c.Challenge.TTL = val
		}
	}
	if attempts := os.Getenv("IGPROXY_CHALLENGE_MAX_ATTEMPTS"); attempts != "" {
		var val int
		fmt.Sscanf(attempts, "%d", &val)
		if val > 0 {
			c.Challenge.MaxAttempts = val
		}
	}
	if addr := os.Getenv("IGPROXY_REDIS_ADDR"); addr != "" {
		c.Challenge.RedisAddr = addr
	}
	if password := os.Getenv("IGPROXY_REDIS_PASSWORD"); password != "" {
		c.Challenge.RedisPassword = password
	}

	if interval := os.Getenv("IGPROXY_STATS_RESET_INTERVAL"); interval != "" {
		if val, err := time.ParseDuration(interval); err == nil && val > 0 {
			c.Stats.ResetInterval = val
		}
	}

	if logLevel := os.Getenv("IGPROXY_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("IGPROXY_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igproxy.yaml",
		".igproxy.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igproxy", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igproxy", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}

	if c.Instagram.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	validBackends := map[string]bool{
		"file": true, "keyring": true, "encrypted": true,
	}
	if !validBackends[strings.ToLower(c.Session.Backend)] {
		errs = append(errs, errors.New("invalid session backend"))
	}
	if c.Session.Directory == "" {
		errs = append(errs, errors.New("session directory is required"))
	}

	if c.Challenge.TTL <= 0 {
		errs = append(errs, errors.New("challenge TTL must be positive"))
	}
	if c.Challenge.MaxAttempts <= 0 {
		errs = append(errs, errors.New("challenge max attempts must be positive"))
	}

	if c.Stats.ResetInterval <= 0 {
		errs = append(errs, errors.New("stats reset interval must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Addr returns the host:port the server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igproxy.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

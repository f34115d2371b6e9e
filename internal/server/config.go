// Package server provides configuration helpers that define runtime defaults
// and validation for the chat server.
package server

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 5000
	defaultMaxLineSize     = 4096
	defaultAcceptTimeout   = time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds the chat server settings. The TCP bind address is the only
// required part; HTTPAddr enables the optional admin HTTP surface.
type Config struct {
	Host            string
	Port            int
	HTTPAddr        string
	AllowedOrigins  []string
	MaxLineSize     int
	AcceptTimeout   time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	DefaultNickname string
}

func defaultConfig() Config {
	return Config{
		Host: defaultHost,
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxLineSize:     defaultMaxLineSize,
		AcceptTimeout:   defaultAcceptTimeout,
		WriteTimeout:    defaultWriteTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		DefaultNickname: DefaultNickname,
	}
}

// sanitizeConfig replaces invalid values with defaults and returns a copy
// that does not share slices with the input.
func sanitizeConfig(cfg Config) Config {
	if cfg.Port < 0 || cfg.Port > 65535 {
		cfg.Port = defaultPort
	}

	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = defaultMaxLineSize
	}

	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = defaultAcceptTimeout
	}

	if cfg.WriteTimeout < 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.DefaultNickname = strings.TrimSpace(cfg.DefaultNickname)
	if cfg.DefaultNickname == "" {
		cfg.DefaultNickname = DefaultNickname
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// Address returns the TCP bind address in host:port form.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set or invalid.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if host := os.Getenv("CHAT_HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("CHAT_PORT"); port != "" {
		cfg.Port = parsePort(port, cfg.Port)
	}

	if addr := os.Getenv("CHAT_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_LINE_SIZE"); maxSize != "" {
		cfg.MaxLineSize = parseIntValue(maxSize, cfg.MaxLineSize)
	}

	if timeout := os.Getenv("ACCEPT_TIMEOUT"); timeout != "" {
		cfg.AcceptTimeout = parseSeconds(timeout, cfg.AcceptTimeout)
	}

	if timeout := os.Getenv("WRITE_TIMEOUT"); timeout != "" {
		cfg.WriteTimeout = parseSeconds(timeout, cfg.WriteTimeout)
	}

	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseSeconds(timeout, cfg.ShutdownTimeout)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parsePort(value string, defaultValue int) int {
	if port, err := strconv.Atoi(value); err == nil && port >= 0 && port <= 65535 {
		return port
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kenes-socket-go/pkg/socket"
	"kenes-socket-go/pkg/types"
)

// Build-time variables set by ldflags
var (
	Version   = ""
	BuildDate = ""
	GitCommit = ""
)

const versionEnvKey = "KENES_VERSION"

// Config holds the application configuration
type Config struct {
	URL      string `yaml:"url"`
	Path     string `yaml:"path"`
	Language string `yaml:"language"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	TimeoutMs int             `yaml:"timeout_ms"`
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// CACert is a PEM file pinned as the only trusted root.
	CACert string `yaml:"ca_cert"`

	MetricsAddr string `yaml:"metrics_addr"`

	// Call routing used by the sample client
	Domain string `yaml:"domain"`
	Topic  string `yaml:"topic"`
}

// ReconnectConfig is the transport reconnection policy
type ReconnectConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Attempts      int     `yaml:"attempts"`
	DelayMs       int     `yaml:"delay_ms"`
	DelayMaxMs    int     `yaml:"delay_max_ms"`
	Randomization float64 `yaml:"randomization"`
}

// Default returns the configuration used before any file or environment
// value is applied.
func Default() *Config {
	return &Config{
		Language:  string(types.DefaultLanguage),
		LogLevel:  "info",
		LogFormat: "json",
		TimeoutMs: 20000,
		Reconnect: ReconnectConfig{
			Enabled:       true,
			Attempts:      3,
			DelayMs:       1000,
			DelayMaxMs:    5000,
			Randomization: 0.5,
		},
	}
}

// Load reads .env from the working directory if present, then the YAML file
// at path if path is not empty, then KENES_* environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.URL = getEnv("KENES_URL", c.URL)
	c.Path = getEnv("KENES_PATH", c.Path)
	c.Language = getEnv("KENES_LANGUAGE", c.Language)
	c.LogLevel = getEnv("KENES_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("KENES_LOG_FORMAT", c.LogFormat)
	c.TimeoutMs = getEnvInt("KENES_TIMEOUT_MS", c.TimeoutMs)
	c.CACert = getEnv("KENES_CA_CERT", c.CACert)
	c.MetricsAddr = getEnv("KENES_METRICS_ADDR", c.MetricsAddr)
	c.Domain = getEnv("KENES_DOMAIN", c.Domain)
	c.Topic = getEnv("KENES_TOPIC", c.Topic)

	c.Reconnect.Enabled = getEnvBool("KENES_RECONNECT_ENABLED", c.Reconnect.Enabled)
	c.Reconnect.Attempts = getEnvInt("KENES_RECONNECT_ATTEMPTS", c.Reconnect.Attempts)
	c.Reconnect.DelayMs = getEnvInt("KENES_RECONNECT_DELAY_MS", c.Reconnect.DelayMs)
	c.Reconnect.DelayMaxMs = getEnvInt("KENES_RECONNECT_DELAY_MAX_MS", c.Reconnect.DelayMaxMs)
	c.Reconnect.Randomization = getEnvFloat("KENES_RECONNECT_RANDOMIZATION", c.Reconnect.Randomization)
}

// Validate checks required fields
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("KENES_URL is required")
	}
	if _, ok := types.ParseLanguage(c.Language); !ok {
		return fmt.Errorf("unsupported language %q", c.Language)
	}
	if c.Reconnect.Attempts < 0 {
		return fmt.Errorf("reconnect attempts must not be negative")
	}
	if c.Reconnect.Randomization < 0 || c.Reconnect.Randomization > 1 {
		return fmt.Errorf("reconnect randomization must be within [0, 1]")
	}
	return nil
}

// Lang returns the configured language, falling back to the default.
func (c *Config) Lang() types.Language {
	if lang, ok := types.ParseLanguage(c.Language); ok {
		return lang
	}
	return types.DefaultLanguage
}

// SocketOptions converts the configuration to client options.
func (c *Config) SocketOptions() (*socket.Options, error) {
	opts := socket.DefaultOptions()
	opts.Language = c.Lang()
	opts.Path = c.Path
	opts.Reconnection = c.Reconnect.Enabled
	opts.ReconnectionAttempts = c.Reconnect.Attempts
	opts.RandomizationFactor = c.Reconnect.Randomization

	if c.Reconnect.DelayMs > 0 {
		opts.ReconnectionDelay = time.Duration(c.Reconnect.DelayMs) * time.Millisecond
	}
	if c.Reconnect.DelayMaxMs > 0 {
		opts.ReconnectionDelayMax = time.Duration(c.Reconnect.DelayMaxMs) * time.Millisecond
	}
	if c.TimeoutMs > 0 {
		opts.Timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	}

	if c.CACert != "" {
		tlsConfig, err := loadTLSConfig(c.CACert)
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsConfig
	}

	return opts, nil
}

func loadTLSConfig(caFile string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// GetVersionString returns the current version string
func GetVersionString() string {
	if v := strings.TrimSpace(Version); v != "" {
		return v
	}

	if envVersion := strings.TrimSpace(os.Getenv(versionEnvKey)); envVersion != "" {
		return envVersion
	}

	if commit := strings.TrimSpace(GitCommit); commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		return fmt.Sprintf("git-%s", commit)
	}

	return "development"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

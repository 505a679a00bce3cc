package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the alarm hub binaries.
// Values are read once at startup and never change while the process runs.
type Config struct {
	// ListenAddress is where the hub accepts websocket connections and serves metrics.
	ListenAddress string `yaml:"listen_addr"`
	// HealthAddress enables the gRPC health listener when not empty.
	HealthAddress string `yaml:"health_addr,omitempty"`
	// ServerURL is the websocket URL the client dials.
	ServerURL string `yaml:"server_url"`
	// ClientExpiry is how long a connection stays live without a heartbeat.
	ClientExpiry time.Duration `yaml:"client_expiry"`
	// MaxAlarms caps the number of alarms in every broadcast.
	MaxAlarms int `yaml:"max_alarms"`
	// WriteTimeout bounds a single websocket frame write.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// SendBuffer is how many broadcasts may queue for one connection.
	SendBuffer int `yaml:"send_buffer"`
	// LogLevel is the minimum zap level, e.g. "debug" or "warn".
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for hub settings.
	DefaultConfigFilename = "alarm-hub-settings.yaml"

	// DefaultListenAddress is the default websocket listen address.
	DefaultListenAddress = ":37813"

	// DefaultServerURL is the default websocket URL for clients.
	DefaultServerURL = "ws://127.0.0.1:37813/"

	// DefaultClientExpiry expires a client not heard from in 5 seconds.
	DefaultClientExpiry = 5 * time.Second

	// DefaultMaxAlarms broadcasts at most 4 latest alarms.
	DefaultMaxAlarms = 4

	// DefaultWriteTimeout is the default deadline for one frame write.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultSendBuffer is the default per-connection broadcast queue length.
	DefaultSendBuffer = 16

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeValue is returned when a numeric setting is below zero.
	errNegativeValue = errors.New("value must not be negative")
	// errUnsupportedScheme is returned when the server URL is not ws or wss.
	errUnsupportedScheme = errors.New("server URL scheme must be ws or wss")
)

// Default returns a configuration populated with default values.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file is not an error: defaults are returned instead.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks formatting and fills unset fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ClientExpiry < 0 {
		return fmt.Errorf("client_expiry: %w", errNegativeValue)
	}

	if cfg.MaxAlarms < 0 {
		return fmt.Errorf("max_alarms: %w", errNegativeValue)
	}

	if cfg.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout: %w", errNegativeValue)
	}

	if cfg.SendBuffer < 0 {
		return fmt.Errorf("send_buffer: %w", errNegativeValue)
	}

	applyDefaults(cfg)

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.HealthAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.HealthAddress); err != nil {
			return fmt.Errorf("invalid health address: %w", err)
		}
	}

	serverURL, err := url.ParseRequestURI(cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	if serverURL.Scheme != "ws" && serverURL.Scheme != "wss" {
		return fmt.Errorf("invalid server URL %q: %w", cfg.ServerURL, errUnsupportedScheme)
	}

	return nil
}

// applyDefaults fills zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}

	if cfg.ClientExpiry == 0 {
		cfg.ClientExpiry = DefaultClientExpiry
	}

	if cfg.MaxAlarms == 0 {
		cfg.MaxAlarms = DefaultMaxAlarms
	}

	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so values like "15s" parse from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Remote   RemoteConfig   `yaml:"remote"`
	Database DatabaseConfig `yaml:"database"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Sync     SyncConfig     `yaml:"sync"`
	Cache    CacheConfig    `yaml:"cache"`
	AWS      AWSConfig      `yaml:"aws"`
	Profile  ProfileConfig  `yaml:"profile"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the loopback API server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// RemoteConfig holds remote store configuration.
// Driver is "http" (hosted REST endpoint) or "postgres" (direct database).
type RemoteConfig struct {
	Driver  string   `yaml:"driver"`
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

// DatabaseConfig holds database configuration for the postgres driver
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RealtimeConfig holds the change-notification channel configuration
type RealtimeConfig struct {
	Enabled       bool     `yaml:"enabled"`
	URL           string   `yaml:"url"`
	ReconnectWait Duration `yaml:"reconnect_wait"`
}

// SyncConfig holds polling intervals for the collection refreshers
type SyncConfig struct {
	TeamsInterval         Duration `yaml:"teams_interval"`
	NominationsInterval   Duration `yaml:"nominations_interval"`
	NotificationsInterval Duration `yaml:"notifications_interval"`
}

// CacheConfig holds the local persisted cache configuration
type CacheConfig struct {
	Path string `yaml:"path"`
}

// AWSConfig holds S3 configuration for resource uploads
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
}

// ProfileConfig holds the default device profile name
type ProfileConfig struct {
	Name string `yaml:"name"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = Duration(30 * time.Second)
	}
	if c.Realtime.ReconnectWait == 0 {
		c.Realtime.ReconnectWait = Duration(2 * time.Second)
	}
	if c.Sync.TeamsInterval == 0 {
		c.Sync.TeamsInterval = Duration(15 * time.Second)
	}
	if c.Sync.NominationsInterval == 0 {
		c.Sync.NominationsInterval = Duration(15 * time.Second)
	}
	if c.Sync.NotificationsInterval == 0 {
		c.Sync.NotificationsInterval = Duration(30 * time.Second)
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "companion.db"
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

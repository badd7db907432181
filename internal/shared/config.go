package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Session store backends
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Market       string `toml:"market"` // ISO 3166-1 country code used for track relinking
}

// Map returns the credentials in the form expected by [services.NewSpotifyAuth].
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig selects where credential records live and which session the CLI acts as.
type SessionConfig struct {
	Backend   string `toml:"backend"`
	ID        string `toml:"id"`
	RedisURL  string `toml:"redis_url"`
	KeyPrefix string `toml:"key_prefix"`
}

// SyncConfig holds pagination, chunking and pacing knobs for the sync engine.
type SyncConfig struct {
	PageSize        int     `toml:"page_size"`
	AppendChunkSize int     `toml:"append_chunk_size"`
	DeleteChunkSize int     `toml:"delete_chunk_size"`
	Delay           string  `toml:"delay"`
	RateLimit       float64 `toml:"rate_limit"` // requests per second, 0 disables the token bucket
}

// MinSyncDelay is the shortest pause allowed between mutation calls.
const MinSyncDelay = 500 * time.Millisecond

// DelayDuration parses [SyncConfig.Delay]. An empty value means [MinSyncDelay]; anything
// shorter is rejected.
func (s SyncConfig) DelayDuration() (time.Duration, error) {
	if s.Delay == "" {
		return MinSyncDelay, nil
	}
	d, err := time.ParseDuration(s.Delay)
	if err != nil {
		return 0, fmt.Errorf("%w: sync.delay %q: %v", ErrInvalidConfig, s.Delay, err)
	}
	if d < MinSyncDelay {
		return 0, fmt.Errorf("%w: sync.delay must be at least %s", ErrInvalidConfig, MinSyncDelay)
	}
	return d, nil
}

// Validate checks values that would otherwise fail deep inside the engine.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}

	if c.Session.Backend == BackendRedis && c.Session.RedisURL == "" {
		return fmt.Errorf("%w: session.redis_url is required for the redis backend", ErrInvalidConfig)
	}

	if c.Sync.AppendChunkSize <= 0 || c.Sync.DeleteChunkSize <= 0 {
		return fmt.Errorf("%w: chunk sizes must be positive", ErrInvalidConfig)
	}

	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("%w: sync.page_size must be positive", ErrInvalidConfig)
	}

	if c.Sync.RateLimit < 0 {
		return fmt.Errorf("%w: sync.rate_limit must not be negative", ErrInvalidConfig)
	}

	_, err := c.Sync.DelayDuration()
	return err
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

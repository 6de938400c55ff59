package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// PlaceholderClientID is the client_id shipped in the example configuration.
const PlaceholderClientID = "your_spotify_client_id"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
	Collage CollageConfig `toml:"collage"`
	HTTP    HTTPConfig    `toml:"http"`
}

// SpotifyConfig contains the OAuth client registration and API endpoints.
type SpotifyConfig struct {
	ClientID    string   `toml:"client_id" validate:"required"`
	RedirectURI string   `toml:"redirect_uri" validate:"required,url"`
	Scopes      []string `toml:"scopes" validate:"min=1,dive,required"`
	Flow        string   `toml:"flow" validate:"oneof=pkce implicit"`
	AuthURL     string   `toml:"auth_url" validate:"required,url"`
	TokenURL    string   `toml:"token_url" validate:"required,url"`
	APIURL      string   `toml:"api_url" validate:"required,url"`
	TimeRange   string   `toml:"time_range" validate:"oneof=short_term medium_term long_term"`
}

// ServerConfig contains the loopback callback server settings.
type ServerConfig struct {
	Host        string `toml:"host" validate:"required"`
	Port        int    `toml:"port" validate:"min=1,max=65535"`
	WaitSeconds int    `toml:"wait_seconds" validate:"min=1"`
}

// SessionConfig selects where the code verifier lives between login steps.
type SessionConfig struct {
	Store      string `toml:"store" validate:"oneof=memory sqlite"`
	Path       string `toml:"path" validate:"required_if=Store sqlite"`
	TTLSeconds int    `toml:"ttl_seconds" validate:"min=0"`
}

// CollageConfig contains the output image settings.
type CollageConfig struct {
	Layout    string  `toml:"layout" validate:"required"`
	Width     int     `toml:"width" validate:"min=100,max=8192"`
	Height    int     `toml:"height" validate:"min=300,max=8192"`
	Headline  string  `toml:"headline"`
	Punchline string  `toml:"punchline"`
	Output    string  `toml:"output"`
	Workers   int     `toml:"workers" validate:"min=1,max=16"`
	RateLimit float64 `toml:"rate_limit" validate:"gt=0"`
}

// HTTPConfig contains outbound HTTP client settings.
type HTTPConfig struct {
	TimeoutSeconds int  `toml:"timeout_seconds" validate:"min=0"`
	RetryTransient bool `toml:"retry_transient"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks field constraints and wraps any violation in [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// HasClientID reports whether a real client_id has been configured.
func (c *Config) HasClientID() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientID != PlaceholderClientID
}

// Timeout is the outbound HTTP client timeout. Zero means no timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// AuthWait is how long the callback server waits for the browser redirect.
func (c *Config) AuthWait() time.Duration {
	return time.Duration(c.Server.WaitSeconds) * time.Second
}

// SessionTTL bounds how long a stored verifier stays usable. Zero disables expiry.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}

// ServerAddr is the host:port the callback server listens on.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

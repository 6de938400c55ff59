package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override configuration file values.
const (
	EnvClientID    = "VIBES_CLIENT_ID"
	EnvRedirectURI = "VIBES_REDIRECT_URI"
	EnvFlow        = "VIBES_FLOW"
	EnvLayout      = "VIBES_LAYOUT"
)

// LoadEnv loads KEY=value pairs from a dotenv file into the process environment.
//
// A missing file is not an error. Variables already set in the environment win.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overwrites configuration values with any VIBES_* variables that are set.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvClientID)); v != "" {
		c.Spotify.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedirectURI)); v != "" {
		c.Spotify.RedirectURI = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFlow)); v != "" {
		c.Spotify.Flow = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLayout)); v != "" {
		c.Collage.Layout = v
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/vibes/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing and migrates the session database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}

		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		config.ApplyEnv()
		r.config = config
		r.logger.Info("config file created", "path", configPath)
	}

	r.logger.Info("initializing session database", "path", r.config.Session.Path)

	db, err := shared.OpenSessionDatabase(r.config.Session.Path)
	if err != nil {
		return fmt.Errorf("failed to prepare session database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Session.Path)

	r.writePlainln("Next steps:")
	if !r.config.HasClientID() {
		r.writePlain("1. Set spotify.client_id in %s (or %s in .env)\n", configPath, shared.EnvClientID)
	} else {
		r.writePlain("1. Client ID configured\n")
	}
	r.writePlain("2. Allow %s as a redirect URI in the Spotify dashboard\n", r.config.Spotify.RedirectURI)
	r.writePlain("3. Run 'vibes collage'\n")

	return nil
}

// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// collageCommand runs the full login, fetch and render flow
func collageCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "collage",
		Usage: "Sign in to Spotify and render your top tracks as a collage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output PNG path (default: collage.output or vibes-<id>.png)",
			},
			&cli.StringFlag{
				Name:    "layout",
				Aliases: []string{"l"},
				Usage:   "Grid as columns x rows, e.g. 3x3 or 4x3",
			},
			&cli.StringFlag{
				Name:  "flow",
				Usage: "Authorization flow: pkce or implicit",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress view",
			},
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Also write the track list as Markdown next to the image",
			},
		},
		Action: r.Collage,
	}
}

// topCommand prints the signed-in user's top tracks
func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Sign in to Spotify and list your top tracks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to return (1-50)",
				Value: 9,
			},
			&cli.StringFlag{
				Name:  "flow",
				Usage: "Authorization flow: pkce or implicit",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Unstyled output: csv, markdown or text",
			},
		},
		Action: r.Top,
	}
}

// authCommand handles the manual, two-step login
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorization helpers",
		Commands: []*cli.Command{
			{
				Name:   "url",
				Usage:  "Begin a login and print the authorization URL",
				Action: r.AuthURL,
			},
			{
				Name:  "complete",
				Usage: "Finish a login from the redirect URL and render the collage",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "redirect",
						Aliases:  []string{"r"},
						Usage:    "Full URL the browser was redirected to",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output PNG path",
					},
				},
				Action: r.AuthComplete,
			},
			{
				Name:  "challenge",
				Usage: "Print the S256 code challenge for a verifier",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "verifier",
					},
				},
				Action: r.AuthChallenge,
			},
		},
	}
}

// setupCommand writes the config file and prepares the session database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and migrate the session database",
		Action: r.Setup,
	}
}

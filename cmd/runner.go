package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/auth"
	"github.com/desertthunder/vibes/internal/repositories"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config       *shared.Config
	configLoaded bool
	httpClient   *http.Client
	logger       *log.Logger
	output       io.Writer
	clock        auth.Clock
	openBrowser  func(string) error
	session      *auth.Session
	store        auth.VerifierStore
	db           *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Config skips loading --config when set.
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Clock      auth.Clock
	// OpenBrowser opens the authorization URL (default: [shared.OpenBrowser]).
	OpenBrowser func(string) error
	// Store overrides the verifier store selected by session.store.
	Store auth.VerifierStore
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loaded := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = auth.SystemClock
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:       opts.Config,
		configLoaded: loaded,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		output:       opts.Output,
		clock:        opts.Clock,
		openBrowser:  opts.OpenBrowser,
		session:      auth.NewSession(opts.Clock),
		store:        opts.Store,
	}
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "vibes",
		Usage:    "Turn your Spotify top tracks into a cover art collage",
		Version:  "0.1.0",
		Flags:    r.flags(),
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, collageCommand, topCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

// before loads the configuration once for whichever subcommand runs.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if !r.configLoaded {
		path := cmd.String("config")
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config = config
			r.logger.Debug("loaded config", "path", path)
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
		r.configLoaded = true
	}

	r.config.ApplyEnv()
	return ctx, nil
}

func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

// client returns the shared outbound HTTP client.
func (r *Runner) client() *http.Client {
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: r.config.Timeout()}
	}
	return r.httpClient
}

// verifierStore opens the store named by session.store on first use.
func (r *Runner) verifierStore(ctx context.Context) (auth.VerifierStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	switch r.config.Session.Store {
	case "sqlite":
		db, err := shared.OpenSessionDatabase(r.config.Session.Path)
		if err != nil {
			return nil, err
		}
		r.db = db

		repo := repositories.NewVerifierRepository(db, r.config.SessionTTL(), r.clock)
		if n, err := repo.Purge(ctx); err != nil {
			r.logger.Warn("failed to purge expired session values", "error", err)
		} else if n > 0 {
			r.logger.Debug("purged expired session values", "count", n)
		}
		r.store = repo
	default:
		r.store = auth.NewMemoryStore()
	}

	return r.store, nil
}

// requireClient validates the configuration and checks that a client_id is set.
func (r *Runner) requireClient() error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if !r.config.HasClientID() {
		return fmt.Errorf("%w: set spotify.client_id in your config or %s", shared.ErrMissingCredentials, shared.EnvClientID)
	}
	return nil
}

// controller builds a login controller for the configured flow.
func (r *Runner) controller(ctx context.Context) (*auth.Controller, error) {
	store, err := r.verifierStore(ctx)
	if err != nil {
		return nil, err
	}

	params := auth.Params{
		ClientID:    r.config.Spotify.ClientID,
		RedirectURI: r.config.Spotify.RedirectURI,
		Scopes:      r.config.Spotify.Scopes,
		AuthURL:     r.config.Spotify.AuthURL,
		TokenURL:    r.config.Spotify.TokenURL,
		HTTPClient:  r.client(),
	}

	strategy, err := auth.NewStrategy(r.config.Spotify.Flow, params, store, r.session)
	if err != nil {
		return nil, err
	}

	logger := shared.WithLogger(r.logger, "flow", strategy.Name(), "attempt", shared.ShortID())
	return auth.NewController(strategy, r.session, logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

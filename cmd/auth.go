package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/vibes/internal/auth"
	"github.com/desertthunder/vibes/internal/server"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/desertthunder/vibes/internal/ui"
	"github.com/urfave/cli/v3"
)

// login signs the user in through the loopback callback server unless the
// session already holds a valid token.
func (r *Runner) login(ctx context.Context) error {
	if r.session.IsValid() {
		r.logger.Debug("reusing access token", "remaining", r.session.Remaining().Round(time.Second))
		return nil
	}

	if err := r.requireClient(); err != nil {
		return err
	}

	controller, err := r.controller(ctx)
	if err != nil {
		return err
	}

	handler, err := server.NewCallbackHandler(ctx, controller, server.CallbackOpts{
		RedirectURI: r.config.Spotify.RedirectURI,
		Fragment:    r.config.Spotify.Flow == auth.FlowImplicit,
		Logger:      r.logger,
	})
	if err != nil {
		return err
	}

	router := server.NewBasicRouter()
	router.Use(server.NoStore, server.Logging(r.logger))
	router.Handler(handler)
	r.logger.Debug("callback routes", "patterns", router.Patterns())

	srv, err := server.Listen(r.config.ServerAddr(), router, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("failed to stop callback server", "error", err)
		}
	}()

	authURL, err := controller.Begin(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("opening browser for Spotify authorization", "callback", srv.Addr())
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("%s\n%s\n", ui.Warning("Open this URL in your browser to continue:"), authURL)
	}

	wait := r.config.AuthWait()
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	case err := <-srv.Errors():
		return fmt.Errorf("callback server failed: %w", err)
	case <-timer.C:
		return fmt.Errorf("%w: no redirect received within %s", shared.ErrTimeout, wait)
	case <-ctx.Done():
		return ctx.Err()
	}

	r.logger.Info("authenticated", "expires_in", r.session.Remaining().Round(time.Second))
	r.logProfile(ctx)
	return nil
}

// logProfile names the signed-in account. A failed lookup does not fail the login.
func (r *Runner) logProfile(ctx context.Context) {
	spotify, err := r.spotifyService(r.logger)
	if err != nil {
		return
	}

	user, err := spotify.UserProfile(ctx)
	if err != nil {
		r.logger.Warn("failed to read Spotify profile", "error", err)
		return
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	r.logger.Info("authenticated as " + name)
}

// AuthURL begins a login and prints the authorization URL without starting the callback server.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}

	if r.config.Session.Store != "sqlite" && r.store == nil {
		r.logger.Warn("the memory session store ends with this process; set session.store = \"sqlite\" to use auth complete")
	}

	controller, err := r.controller(ctx)
	if err != nil {
		return err
	}

	authURL, err := controller.Begin(ctx)
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", authURL)
}

// AuthComplete finishes a login from a pasted redirect URL and renders the collage
// while the token is still held in memory.
func (r *Runner) AuthComplete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}

	redirect, err := url.Parse(cmd.String("redirect"))
	if err != nil {
		return fmt.Errorf("%w: redirect: %v", shared.ErrInvalidArgument, err)
	}

	controller, err := r.controller(ctx)
	if err != nil {
		return err
	}

	ok, err := controller.Complete(ctx, redirect)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: redirect carries no authorization response", shared.ErrInvalidArgument)
	}

	r.writePlain("%s\n", ui.Success("✓ Authenticated"))
	_, err = r.renderCollage(ctx, cmd.String("output"), false)
	return err
}

// AuthChallenge prints the S256 challenge derived from a verifier.
func (r *Runner) AuthChallenge(ctx context.Context, cmd *cli.Command) error {
	verifier := auth.Verifier(cmd.StringArg("verifier"))
	if verifier == "" {
		return fmt.Errorf("%w: verifier", shared.ErrMissingArgument)
	}
	if n := len(verifier); n < auth.MinVerifierLength || n > auth.MaxVerifierLength {
		return fmt.Errorf("%w: verifier must be %d-%d characters, got %d",
			shared.ErrInvalidArgument, auth.MinVerifierLength, auth.MaxVerifierLength, n)
	}
	if !auth.IsUnreserved(verifier) {
		return fmt.Errorf("%w: verifier contains reserved characters", shared.ErrInvalidArgument)
	}

	return r.writePlain("%s\n", auth.DeriveChallenge(verifier))
}

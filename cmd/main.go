package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/vibes/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(".env"); err != nil {
		logger.Warn("ignoring .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.app().Run(ctx, os.Args); err != nil {
		stop()
		if hint := reloginHint(err); hint != "" {
			logger.Warn(hint)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// reloginHint tells the user how to recover when the run failed for want of a usable token.
func reloginHint(err error) string {
	if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
		return "your Spotify session is no longer valid; run \"vibes collage\" or \"vibes auth url\" to sign in again"
	}
	return ""
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibes/internal/collage"
	"github.com/desertthunder/vibes/internal/formatter"
	"github.com/desertthunder/vibes/internal/services"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/desertthunder/vibes/internal/tasks"
	"github.com/desertthunder/vibes/internal/ui"
	"github.com/urfave/cli/v3"
)

// Collage signs in, fetches the top tracks and writes the collage.
func (r *Runner) Collage(ctx context.Context, cmd *cli.Command) error {
	if flow := cmd.String("flow"); flow != "" {
		r.config.Spotify.Flow = flow
	}
	if layout := cmd.String("layout"); layout != "" {
		r.config.Collage.Layout = layout
	}
	if _, err := collage.ParseLayout(r.config.Collage.Layout); err != nil {
		return err
	}

	if err := r.login(ctx); err != nil {
		return err
	}

	result, err := r.renderCollage(ctx, cmd.String("output"), cmd.Bool("tui"))
	if err != nil {
		return err
	}

	if cmd.Bool("markdown") {
		return r.writeMarkdown(result)
	}
	return nil
}

// Top signs in and prints the top tracks.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	if flow := cmd.String("flow"); flow != "" {
		r.config.Spotify.Flow = flow
	}

	if err := r.login(ctx); err != nil {
		return err
	}

	spotify, err := r.spotifyService(r.logger)
	if err != nil {
		return err
	}

	tracks, err := spotify.TopTracks(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	if f := cmd.String("format"); f != "" {
		format, err := formatter.ParseFormat(f)
		if err != nil {
			return err
		}
		data, err := formatter.Render(format, "Top Tracks", tracks)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	r.writePlainHeader("Top Tracks")
	for i, t := range tracks {
		r.writePlain("%2d. %s - %s", i+1, t.Name, joinArtists(t.Artists))
		if t.Album != "" {
			r.writePlain(" %s", ui.Hint("("+t.Album+")"))
		}
		r.writePlain("\n")
	}
	return nil
}

// renderCollage runs the collage engine with the already authorized session.
func (r *Runner) renderCollage(ctx context.Context, output string, interactive bool) (*tasks.CollageResult, error) {
	// The progress view owns the terminal, so collaborators log nowhere while it runs.
	logger := r.logger
	if interactive {
		logger = nil
	}

	engine, err := r.collageEngine(logger)
	if err != nil {
		return nil, err
	}

	opts := tasks.RunOpts{Output: r.outputPath(output), Text: r.collageText()}

	if interactive {
		result, err := ui.Run(ctx, engine, opts, tea.WithOutput(r.output))
		if err != nil {
			return nil, err
		}
		return result, r.writePlain("%s\n", result.Output)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := ui.NewPrinter(r.output).Follow(progress)
	result, err := engine.Run(ctx, progress, opts)
	close(progress)
	<-done

	return result, err
}

// writeMarkdown writes the track list next to the collage, embedding the image.
func (r *Runner) writeMarkdown(result *tasks.CollageResult) error {
	path := strings.TrimSuffix(result.Output, filepath.Ext(result.Output)) + ".md"
	title := r.collageText().Headline
	data := formatter.TracksToMarkdown(title, result.Tracks, filepath.Base(result.Output))

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write Markdown file: %w", err)
	}

	r.logger.Info("track list written", "path", path)
	return r.writePlain("%s\n", path)
}

func (r *Runner) spotifyService(logger *log.Logger) (*services.SpotifyService, error) {
	return services.NewSpotifyService(services.SpotifyOpts{
		BaseURL:        r.config.Spotify.APIURL,
		Session:        r.session,
		HTTPClient:     r.client(),
		TimeRange:      r.config.Spotify.TimeRange,
		RetryTransient: r.config.HTTP.RetryTransient,
		RetryDelay:     time.Second,
		Logger:         logger,
	})
}

func (r *Runner) collageEngine(logger *log.Logger) (*tasks.CollageEngine, error) {
	layout, err := collage.ParseLayout(r.config.Collage.Layout)
	if err != nil {
		return nil, err
	}

	spotify, err := r.spotifyService(logger)
	if err != nil {
		return nil, err
	}

	loader := collage.NewLoader(collage.LoaderOpts{
		HTTPClient: r.client(),
		Workers:    r.config.Collage.Workers,
		RateLimit:  r.config.Collage.RateLimit,
		Logger:     logger,
	})

	renderer, err := collage.NewRenderer(loader, collage.Options{
		Width:  r.config.Collage.Width,
		Height: r.config.Collage.Height,
		Layout: layout,
	})
	if err != nil {
		return nil, err
	}

	return tasks.NewCollageEngine(spotify, renderer, logger), nil
}

// outputPath picks the flag value, then collage.output, then a generated name.
func (r *Runner) outputPath(flag string) string {
	switch {
	case flag != "":
		return flag
	case r.config.Collage.Output != "":
		return r.config.Collage.Output
	default:
		return "vibes-" + shared.ShortID() + ".png"
	}
}

func (r *Runner) collageText() collage.Text {
	text := collage.DefaultText()
	if r.config.Collage.Headline != "" {
		text.Headline = r.config.Collage.Headline
	}
	if r.config.Collage.Punchline != "" {
		text.Punchline = r.config.Collage.Punchline
	}
	return text
}

func joinArtists(artists []string) string {
	if len(artists) == 0 {
		return "Unknown artist"
	}
	return strings.Join(artists, ", ")
}

package tasks

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/collage"
	"github.com/desertthunder/vibes/internal/services"
	"github.com/desertthunder/vibes/internal/shared"
)

// Renderer loads covers and draws them onto a canvas.
type Renderer interface {
	Layout() collage.Layout
	Render(ctx context.Context, urls []string, text collage.Text, onLoad func(done, total int)) (image.Image, error)
}

// CollageResult contains everything produced by one run.
type CollageResult struct {
	Tracks []services.Track `json:"tracks"`
	Layout string           `json:"layout"`
	Output string           `json:"output"`
}

// RunOpts configures a single [CollageEngine.Run].
type RunOpts struct {
	Output string
	Text   collage.Text
}

// CollageEngine orchestrates a collage run from already authorized collaborators.
type CollageEngine struct {
	tracks   services.TopTracksReader
	renderer Renderer
	logger   *log.Logger
}

// NewCollageEngine creates a new CollageEngine with the provided collaborators.
func NewCollageEngine(tracks services.TopTracksReader, renderer Renderer, logger *log.Logger) *CollageEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CollageEngine{
		tracks:   tracks,
		renderer: renderer,
		logger:   logger,
	}
}

// Send sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func Send(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run fetches one top track per grid cell, loads every cover, composes the collage and writes it
// to opts.Output. Nothing is written unless every cover loads.
func (e *CollageEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts RunOpts) (*CollageResult, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	layout := e.renderer.Layout()
	limit := layout.Cells()

	Send(progress, fetchTracksUpdate(limit))
	tracks, err := e.tracks.TopTracks(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no top tracks for this account yet", shared.ErrResourceFetchFailed)
	}
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	e.logger.Info("fetched top tracks", "count", len(tracks), "layout", layout)

	urls := services.CoverURLs(tracks)
	Send(progress, loadCoverUpdate(0, len(urls)))
	img, err := e.renderer.Render(ctx, urls, opts.Text, func(done, total int) {
		Send(progress, loadCoverUpdate(done, total))
		if done == total {
			Send(progress, composeUpdate(total, layout.String()))
		}
	})
	if err != nil {
		return nil, err
	}

	Send(progress, writeImageUpdate(opts.Output))
	if err := collage.WritePNG(opts.Output, img); err != nil {
		return nil, err
	}

	result := &CollageResult{Tracks: tracks, Layout: layout.String(), Output: opts.Output}
	Send(progress, completeUpdate(result))
	e.logger.Info("collage written", "path", opts.Output)

	return result, nil
}

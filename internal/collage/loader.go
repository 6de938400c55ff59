package collage

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/shared"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// maxAssetBytes bounds a single cover download.
const maxAssetBytes = 20 << 20

// AssetLoader fetches and decodes a set of images, all or nothing.
type AssetLoader interface {
	// LoadAll returns one image per URL in the same order. onLoad, if set, is called after each
	// image finishes with the number finished so far.
	LoadAll(ctx context.Context, urls []string, onLoad func(done, total int)) ([]image.Image, error)
}

// LoaderOpts configures a [Loader].
type LoaderOpts struct {
	HTTPClient *http.Client
	Workers    int     // Concurrent downloads (default: 4)
	RateLimit  float64 // Requests per second, 0 for unlimited
	Logger     *log.Logger
}

// Loader downloads covers concurrently with a bounded worker count and request pacing.
type Loader struct {
	client  *http.Client
	workers int
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewLoader creates a [Loader].
func NewLoader(opts LoaderOpts) *Loader {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Loader{
		client:  opts.HTTPClient,
		workers: opts.Workers,
		limiter: limiter,
		logger:  opts.Logger,
	}
}

// LoadAll loads every URL concurrently. The first failure cancels the remaining downloads and
// is returned wrapped in [shared.ErrAssetLoadFailed].
func (l *Loader) LoadAll(ctx context.Context, urls []string, onLoad func(done, total int)) ([]image.Image, error) {
	images := make([]image.Image, len(urls))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, u := range urls {
		g.Go(func() error {
			if err := l.limiter.Wait(gctx); err != nil {
				return fmt.Errorf("%w: cover %d: %v", shared.ErrAssetLoadFailed, i+1, err)
			}

			img, err := l.Load(gctx, u)
			if err != nil {
				return fmt.Errorf("cover %d: %w", i+1, err)
			}
			images[i] = img

			n := done.Add(1)
			if onLoad != nil {
				onLoad(int(n), len(urls))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Debug("loaded covers", "count", len(images))
	return images, nil
}

// Load downloads and decodes a single image.
func (l *Loader) Load(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: track has no cover image", shared.ErrAssetLoadFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAssetLoadFailed, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAssetLoadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrAssetLoadFailed, url, resp.StatusCode)
	}

	img, format, err := image.Decode(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", shared.ErrAssetLoadFailed, url, err)
	}

	l.logger.Debug("decoded cover", "format", format, "bounds", img.Bounds().Size())
	return img, nil
}

var _ AssetLoader = (*Loader)(nil)

package collage

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/desertthunder/vibes/internal/shared"
	"golang.org/x/image/draw"
)

const (
	DefaultWidth  = 1080
	DefaultHeight = 1080

	DefaultHeadline  = "if this is their vibes"
	DefaultPunchline = "RUN!"

	topBandHeight    = 110
	bottomBandHeight = 140
)

var (
	bandColor      = color.NRGBA{A: 64}
	headlineColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	punchlineColor = color.NRGBA{R: 0xff, G: 0x3b, B: 0x30, A: 255}
	shadowColor    = color.NRGBA{A: 153}
)

// Text is the copy drawn over the covers.
type Text struct {
	Headline  string
	Punchline string
}

// DefaultText returns the headline and punchline used when none are configured.
func DefaultText() Text {
	return Text{Headline: DefaultHeadline, Punchline: DefaultPunchline}
}

// Options sets the canvas size and grid.
type Options struct {
	Width  int
	Height int
	Layout Layout
}

// Renderer produces the collage.
type Renderer struct {
	loader AssetLoader
	opts   Options
	fonts  *fontSet
}

// NewRenderer creates a [Renderer]. Zero options fall back to a 1080x1080 3x3 collage.
func NewRenderer(loader AssetLoader, opts Options) (*Renderer, error) {
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}
	if opts.Layout == (Layout{}) {
		opts.Layout = DefaultLayout
	}
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", shared.ErrInvalidArgument, opts.Width, opts.Height)
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, err
	}

	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}

	return &Renderer{loader: loader, opts: opts, fonts: fonts}, nil
}

// Layout returns the grid in use.
func (r *Renderer) Layout() Layout {
	return r.opts.Layout
}

// Render loads the covers at urls and composes them. URLs beyond the grid are ignored.
// onLoad, when set, is called after each cover finishes loading.
func (r *Renderer) Render(ctx context.Context, urls []string, text Text, onLoad func(done, total int)) (image.Image, error) {
	if cells := r.opts.Layout.Cells(); len(urls) > cells {
		urls = urls[:cells]
	}

	images, err := r.loader.LoadAll(ctx, urls, onLoad)
	if err != nil {
		return nil, err
	}

	return r.Compose(images, text), nil
}

// Compose draws already loaded images. Cells without an image stay black.
func (r *Renderer) Compose(images []image.Image, text Text) *image.RGBA {
	w, h := r.opts.Width, r.opts.Height
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	layout := r.opts.Layout
	cellW, cellH := w/layout.Cols, h/layout.Rows

	for i, img := range images {
		if i >= layout.Cells() {
			break
		}
		if img == nil {
			continue
		}
		col, row := i%layout.Cols, i/layout.Cols
		cell := image.Rect(col*cellW, row*cellH, (col+1)*cellW, (row+1)*cellH)
		drawCover(canvas, cell, img)
	}

	band := image.NewUniform(bandColor)
	draw.Draw(canvas, image.Rect(0, 0, w, topBandHeight), band, image.Point{}, draw.Over)
	draw.Draw(canvas, image.Rect(0, h-bottomBandHeight, w, h), band, image.Point{}, draw.Over)

	drawCentered(canvas, r.fonts.headline, text.Headline, 72, headlineColor, false)
	drawCentered(canvas, r.fonts.punchline, text.Punchline, h-40, punchlineColor, true)

	return canvas
}

// drawCover scales img to fill cell, cropping the overflow equally from both sides.
func drawCover(dst draw.Image, cell image.Rectangle, img image.Image) {
	src := coverSource(img.Bounds().Dx(), img.Bounds().Dy(), cell.Dx(), cell.Dy())
	if src.Empty() {
		return
	}
	src = src.Add(img.Bounds().Min)
	draw.CatmullRom.Scale(dst, cell, img, src, draw.Src, nil)
}

// coverSource returns the region of an iw x ih image that, scaled by
// max(dw/iw, dh/ih), exactly covers a dw x dh cell.
func coverSource(iw, ih, dw, dh int) image.Rectangle {
	if iw <= 0 || ih <= 0 || dw <= 0 || dh <= 0 {
		return image.Rectangle{}
	}

	scale := math.Max(float64(dw)/float64(iw), float64(dh)/float64(ih))
	sw := float64(dw) / scale
	sh := float64(dh) / scale
	sx := (float64(iw) - sw) / 2
	sy := (float64(ih) - sh) / 2

	x0, y0 := int(math.Round(sx)), int(math.Round(sy))
	x1, y1 := x0+int(math.Round(sw)), y0+int(math.Round(sh))

	return image.Rect(x0, y0, min(x1, iw), min(y1, ih))
}

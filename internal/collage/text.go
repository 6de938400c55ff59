package collage

import (
	"fmt"
	"image"
	"image/color"

	"github.com/desertthunder/vibes/internal/shared"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	headlineSize  = 48
	punchlineSize = 120

	// shadowRadius is the box radius of each of the three blur passes.
	shadowRadius = 9
	blurPasses   = 3
)

type fontSet struct {
	headline  font.Face
	punchline font.Face
}

func loadFonts() (*fontSet, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse font: %v", shared.ErrAssetLoadFailed, err)
	}

	face := func(size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}

	headline, err := face(headlineSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load headline face: %v", shared.ErrAssetLoadFailed, err)
	}
	punchline, err := face(punchlineSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load punchline face: %v", shared.ErrAssetLoadFailed, err)
	}

	return &fontSet{headline: headline, punchline: punchline}, nil
}

// drawCentered draws s horizontally centered with its baseline at y.
func drawCentered(dst draw.Image, face font.Face, s string, baseline int, c color.Color, shadow bool) {
	if s == "" {
		return
	}

	width := font.MeasureString(face, s)
	x := (fixed.I(dst.Bounds().Dx()) - width) / 2
	dot := fixed.Point26_6{X: x, Y: fixed.I(baseline)}

	if shadow {
		drawShadow(dst, face, s, dot)
	}

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face, Dot: dot}
	d.DrawString(s)
}

// drawShadow draws a blurred dark copy of s behind where it will be drawn.
func drawShadow(dst draw.Image, face font.Face, s string, dot fixed.Point26_6) {
	bounds, _ := font.BoundString(face, s)
	pad := shadowRadius * blurPasses
	area := image.Rect(
		(dot.X+bounds.Min.X).Floor()-pad,
		(dot.Y+bounds.Min.Y).Floor()-pad,
		(dot.X+bounds.Max.X).Ceil()+pad,
		(dot.Y+bounds.Max.Y).Ceil()+pad,
	)

	mask := image.NewAlpha(area)
	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: dot}
	d.DrawString(s)

	for range blurPasses {
		boxBlur(mask, shadowRadius)
	}

	draw.DrawMask(dst, area, image.NewUniform(shadowColor), image.Point{}, mask, area.Min, draw.Over)
}

// boxBlur blurs m in place with a horizontal then a vertical running-sum pass.
func boxBlur(m *image.Alpha, r int) {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || r <= 0 {
		return
	}

	tmp := make([]uint8, max(w, h))
	window := 2*r + 1

	blurLine := func(get func(i int) uint8, set func(i int, v uint8), n int) {
		sum := 0
		for i := -r; i <= r; i++ {
			if i >= 0 && i < n {
				sum += int(get(i))
			}
		}
		for i := range n {
			tmp[i] = uint8(sum / window)
			if out := i - r; out >= 0 {
				sum -= int(get(out))
			}
			if in := i + r + 1; in < n {
				sum += int(get(in))
			}
		}
		for i := range n {
			set(i, tmp[i])
		}
	}

	for y := range h {
		row := m.Pix[y*m.Stride : y*m.Stride+w]
		blurLine(func(i int) uint8 { return row[i] }, func(i int, v uint8) { row[i] = v }, w)
	}
	for x := range w {
		blurLine(
			func(i int) uint8 { return m.Pix[i*m.Stride+x] },
			func(i int, v uint8) { m.Pix[i*m.Stride+x] = v },
			h,
		)
	}
}

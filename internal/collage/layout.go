package collage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/vibes/internal/shared"
)

// Layout is a grid of Cols columns by Rows rows.
type Layout struct {
	Cols int
	Rows int
}

// DefaultLayout is the 3x3 grid.
var DefaultLayout = Layout{Cols: 3, Rows: 3}

// ParseLayout parses "CxR" (also "C×R"), e.g. "3x3" or "4x3".
func ParseLayout(s string) (Layout, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "×", "x")

	cols, rows, ok := strings.Cut(normalized, "x")
	if !ok {
		return Layout{}, fmt.Errorf("%w: layout %q must look like 3x3", shared.ErrInvalidArgument, s)
	}

	c, err := strconv.Atoi(strings.TrimSpace(cols))
	if err != nil {
		return Layout{}, fmt.Errorf("%w: layout %q has invalid columns", shared.ErrInvalidArgument, s)
	}
	r, err := strconv.Atoi(strings.TrimSpace(rows))
	if err != nil {
		return Layout{}, fmt.Errorf("%w: layout %q has invalid rows", shared.ErrInvalidArgument, s)
	}

	l := Layout{Cols: c, Rows: r}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks the grid has between 1 and 10 cells per side.
func (l Layout) Validate() error {
	if l.Cols < 1 || l.Rows < 1 || l.Cols > 10 || l.Rows > 10 {
		return fmt.Errorf("%w: layout %s must have 1 to 10 columns and rows", shared.ErrInvalidArgument, l)
	}
	return nil
}

// Cells returns the number of covers the layout holds.
func (l Layout) Cells() int {
	return l.Cols * l.Rows
}

func (l Layout) String() string {
	return fmt.Sprintf("%dx%d", l.Cols, l.Rows)
}

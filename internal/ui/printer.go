package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/vibes/internal/tasks"
)

// Printer writes progress updates as styled lines.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a [Printer] writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Progress prints a single update. Cover loads print only their first and last step.
func (p *Printer) Progress(u tasks.ProgressUpdate) {
	switch {
	case u.Phase == tasks.LoadCovers && u.Step != 0 && u.Step != u.Total:
		return
	case u.Phase == tasks.Complete:
		fmt.Fprintln(p.w, Success(u.Message))
	default:
		fmt.Fprintf(p.w, "→ %s\n", u.Message)
	}
}

// Follow prints every update from progress until it is closed. The returned channel closes
// once the last update has been written.
func (p *Printer) Follow(progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			p.Progress(u)
		}
	}()
	return done
}

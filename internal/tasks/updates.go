package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a collage run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Authorize Phase = iota
	FetchTracks
	LoadCovers
	Compose
	WriteImage
	Complete
)

func (p Phase) String() string {
	switch p {
	case Authorize:
		return "authorize"
	case FetchTracks:
		return "fetch_tracks"
	case LoadCovers:
		return "load_covers"
	case Compose:
		return "compose"
	case WriteImage:
		return "write_image"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// AuthorizeUpdate reports that the browser login is pending.
func AuthorizeUpdate(message string) ProgressUpdate {
	return ProgressUpdate{Phase: Authorize, Step: 1, Total: 1, Message: message}
}

func fetchTracksUpdate(limit int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching your top %d tracks from Spotify...", limit),
	}
}

func loadCoverUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCovers,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Loading album covers...", step, total),
	}
}

func composeUpdate(cells int, layout string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compose,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Composing %s collage (%d covers)...", layout, cells),
	}
}

func writeImageUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteImage,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %s...", path),
	}
}

func completeUpdate(result *CollageResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Collage saved to %s", result.Output),
		Data:    result,
	}
}

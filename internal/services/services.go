package services

import (
	"context"
)

// TopTracksReader reads the signed-in user's most played tracks.
type TopTracksReader interface {
	TopTracks(ctx context.Context, limit int) ([]Track, error)
}

// Track represents a track as displayed by the CLI and drawn into the collage
type Track struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	CoverURL string   `json:"cover_url"`
}

// CoverURLs returns the cover URL of each track, in order.
func CoverURLs(tracks []Track) []string {
	urls := make([]string, len(tracks))
	for i, t := range tracks {
		urls[i] = t.CoverURL
	}
	return urls
}

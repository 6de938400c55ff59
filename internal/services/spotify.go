// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/auth"
	"github.com/desertthunder/vibes/internal/shared"
)

const (
	DefaultSpotifyAPIURL = "https://api.spotify.com/v1"
	DefaultTimeRange     = "short_term"
	MaxTopTracksLimit    = 50
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyPaginatedTracks represents a paginated response of top tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifyTrack `json:"items"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	BaseURL    string
	Session    *auth.Session
	HTTPClient *http.Client
	// TimeRange is long_term, medium_term or short_term.
	TimeRange string
	// RetryTransient allows a single retry after a transport error, 429 or 5xx.
	RetryTransient bool
	RetryDelay     time.Duration
	Logger         *log.Logger
}

// SpotifyService reads from the Spotify Web API with the token held in an [auth.Session].
type SpotifyService struct {
	baseURL        string
	session        *auth.Session
	httpClient     *http.Client
	timeRange      string
	retryTransient bool
	retryDelay     time.Duration
	logger         *log.Logger
}

// NewSpotifyService creates a new Spotify service reading tokens from opts.Session.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("%w: session is required", shared.ErrMissingArgument)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultSpotifyAPIURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	timeRange := opts.TimeRange
	if timeRange == "" {
		timeRange = DefaultTimeRange
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &SpotifyService{
		baseURL:        baseURL,
		session:        opts.Session,
		httpClient:     httpClient,
		timeRange:      timeRange,
		retryTransient: opts.RetryTransient,
		retryDelay:     opts.RetryDelay,
		logger:         logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	token, err := s.session.Bearer()
	if err != nil {
		return err
	}

	err = s.get(ctx, token, endpoint, result)
	if err == nil || !s.retryTransient || !isTransient(err) {
		return err
	}

	s.logger.Warn("retrying transient failure", "endpoint", endpoint, "error", err)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.retryDelay):
	}

	// The token may have expired while waiting.
	if token, err = s.session.Bearer(); err != nil {
		return err
	}
	return s.get(ctx, token, endpoint, result)
}

func (s *SpotifyService) get(ctx context.Context, token, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &transientError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// The server revoked the token early; drop it so later calls fail without a request.
		s.session.Clear()
		return fmt.Errorf("%w: spotify API returned 401", shared.ErrTokenExpired)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w: status %d, body: %s", shared.ErrResourceFetchFailed, resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &transientError{err: err}
		}
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrResourceFetchFailed, err)
		}
	}

	return nil
}

// transientError marks failures that a single retry may fix.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TopTracks retrieves the user's top tracks for the configured time range.
// The limit is clamped to 1..50.
func (s *SpotifyService) TopTracks(ctx context.Context, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxTopTracksLimit {
		limit = MaxTopTracksLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("time_range", s.timeRange)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, "/me/top/tracks?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(response.Items))
	for _, item := range response.Items {
		tracks = append(tracks, item.toTrack())
	}

	s.logger.Debug("fetched top tracks", "count", len(tracks), "time_range", s.timeRange)
	return tracks, nil
}

func (t SpotifyTrack) toTrack() Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	return Track{
		ID:       t.ID,
		Name:     t.Name,
		Artists:  artists,
		Album:    t.Album.Name,
		CoverURL: LargestImage(t.Album.Images).URL,
	}
}

// LargestImage returns the image with the largest area, or the first image when none report
// dimensions. It returns the zero value for an empty slice.
func LargestImage(images []SpotifyImage) SpotifyImage {
	if len(images) == 0 {
		return SpotifyImage{}
	}

	best := images[0]
	for _, img := range images[1:] {
		if img.Width*img.Height > best.Width*best.Height {
			best = img
		}
	}
	return best
}

var _ TopTracksReader = (*SpotifyService)(nil)

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/auth"
	"github.com/desertthunder/vibes/internal/services"
	"github.com/desertthunder/vibes/internal/shared"
)

// fakeSpotify serves the token endpoint, the top tracks endpoint and the covers it links to.
type fakeSpotify struct {
	*httptest.Server
	mu       sync.Mutex
	forms    []url.Values
	profiles atomic.Int32
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()

	var buf bytes.Buffer
	cover := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range cover.Pix {
		cover.Pix[i] = 0xff
	}
	if err := png.Encode(&buf, cover); err != nil {
		t.Fatalf("failed to encode cover: %v", err)
	}
	coverPNG := buf.Bytes()

	f := &fakeSpotify{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.forms = append(f.forms, r.PostForm)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-vibes",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /v1/me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-vibes" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		items := []services.SpotifyTrack{}
		for i := range 4 {
			items = append(items, services.SpotifyTrack{
				ID:      fmt.Sprintf("t%d", i),
				Name:    fmt.Sprintf("Song %d", i),
				Artists: []services.SpotifyArtist{{Name: "Artist"}},
				Album: services.SpotifyAlbum{
					Name:   "Album",
					Images: []services.SpotifyImage{{URL: fmt.Sprintf("%s/covers/%d.png", f.URL, i), Width: 32, Height: 32}},
				},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(services.SpotifyPaginatedTracks{Items: items, Total: len(items)})
	})
	mux.HandleFunc("GET /v1/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-vibes" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.profiles.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(services.SpotifyUser{ID: "u1", DisplayName: "Listener"})
	})
	mux.HandleFunc("GET /covers/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(coverPNG)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSpotify) tokenForms() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.forms...)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func testConfig(t *testing.T, api *fakeSpotify) *shared.Config {
	t.Helper()
	for _, key := range []string{shared.EnvClientID, shared.EnvRedirectURI, shared.EnvFlow, shared.EnvLayout} {
		t.Setenv(key, "")
	}

	port := freePort(t)
	config := shared.DefaultConfig()
	config.Spotify.ClientID = "test-client"
	config.Spotify.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	config.Spotify.AuthURL = api.URL + "/authorize"
	config.Spotify.TokenURL = api.URL + "/api/token"
	config.Spotify.APIURL = api.URL + "/v1"
	config.Server.Port = port
	config.Server.WaitSeconds = 5
	config.Collage.Layout = "2x2"
	config.Collage.Width = 300
	config.Collage.Height = 300
	config.Collage.RateLimit = 100
	config.Session.Path = filepath.Join(t.TempDir(), "vibes.db")
	return config
}

// approve plays the browser: it follows the authorization URL straight to the redirect URI.
func approve(t *testing.T, config *shared.Config) func(string) error {
	return func(raw string) error {
		authURL, err := url.Parse(raw)
		if err != nil {
			return err
		}
		q := authURL.Query()
		if q.Get("client_id") != config.Spotify.ClientID {
			t.Errorf("expected client_id %q, got %q", config.Spotify.ClientID, q.Get("client_id"))
		}

		redirect := config.Spotify.RedirectURI + "?code=zq9authcode&state=" + url.QueryEscape(q.Get("state"))
		go func() {
			resp, err := http.Get(redirect)
			if err != nil {
				t.Errorf("redirect request failed: %v", err)
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{})
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			store := auth.NewMemoryStore()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Store:      store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if !runner.configLoaded {
				t.Error("expected provided config to skip loading")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.client() != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.configLoaded {
				t.Error("expected config to be loaded from --config")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
		})

		t.Run("creates an empty session", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.session == nil || runner.session.IsValid() {
				t.Error("expected an empty session")
			}
		})

		t.Run("http client uses configured timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.HTTP.TimeoutSeconds = 7

			runner := NewRunner(RunnerOpts{Config: config})

			if got := runner.client().Timeout.Seconds(); got != 7 {
				t.Errorf("expected 7s timeout, got %vs", got)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := []string{}
		for _, cmd := range runner.register() {
			names = append(names, cmd.Name)
		}

		for _, want := range []string{"setup", "auth", "collage", "top"} {
			found := false
			for _, name := range names {
				if name == want {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %q command, got %v", want, names)
			}
		}
	})

	t.Run("outputPath", func(t *testing.T) {
		config := shared.DefaultConfig()
		runner := NewRunner(RunnerOpts{Config: config})

		if got := runner.outputPath("flag.png"); got != "flag.png" {
			t.Errorf("expected flag value, got %q", got)
		}

		config.Collage.Output = "configured.png"
		if got := runner.outputPath(""); got != "configured.png" {
			t.Errorf("expected configured value, got %q", got)
		}

		config.Collage.Output = ""
		got := runner.outputPath("")
		if !strings.HasPrefix(got, "vibes-") || !strings.HasSuffix(got, ".png") {
			t.Errorf("expected generated name, got %q", got)
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]string{"name": "Song"}, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "\n  \"name\": \"Song\"") {
			t.Errorf("expected indented JSON, got %q", output.String())
		}
	})
}

func TestAuthChallenge(t *testing.T) {
	tests := []struct {
		name     string
		verifier string
		want     string
		wantErr  error
	}{
		{
			name:     "RFC 7636 appendix B vector",
			verifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
			want:     "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		},
		{name: "too short", verifier: "abc", wantErr: shared.ErrInvalidArgument},
		{name: "reserved characters", verifier: strings.Repeat("a", 42) + "+", wantErr: shared.ErrInvalidArgument},
		{name: "missing", verifier: "", wantErr: shared.ErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Output: output, Logger: quietLogger()})

			args := []string{"vibes", "auth", "challenge"}
			if tt.verifier != "" {
				args = append(args, tt.verifier)
			}
			err := runner.app().Run(context.Background(), args)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.TrimSpace(output.String()); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCollageCommand(t *testing.T) {
	t.Run("logs in through the callback server and writes the collage", func(t *testing.T) {
		api := newFakeSpotify(t)
		config := testConfig(t, api)
		output := &bytes.Buffer{}
		path := filepath.Join(t.TempDir(), "out", "collage.png")

		runner := NewRunner(RunnerOpts{
			Config:      config,
			Output:      output,
			Logger:      quietLogger(),
			OpenBrowser: approve(t, config),
		})

		if err := runner.app().Run(context.Background(), []string{"vibes", "collage", "--output", path, "--markdown"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("expected collage at %s: %v", path, err)
		}
		defer f.Close()
		img, err := png.Decode(f)
		if err != nil {
			t.Fatalf("expected a PNG: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 300 {
			t.Errorf("expected 300x300 canvas, got %v", b)
		}

		forms := api.tokenForms()
		if len(forms) != 1 {
			t.Fatalf("expected 1 token exchange, got %d", len(forms))
		}
		if forms[0].Get("code") != "zq9authcode" {
			t.Errorf("expected exchanged code, got %q", forms[0].Get("code"))
		}
		if forms[0].Get("code_verifier") == "" {
			t.Error("expected code_verifier in the token request")
		}
		if !runner.session.IsValid() {
			t.Error("expected the session to hold a valid token")
		}
		if api.profiles.Load() != 1 {
			t.Errorf("expected one profile lookup after login, got %d", api.profiles.Load())
		}
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected output path in %q", output.String())
		}

		notes, err := os.ReadFile(strings.TrimSuffix(path, ".png") + ".md")
		if err != nil {
			t.Fatalf("expected Markdown track list: %v", err)
		}
		if !strings.Contains(string(notes), "![Collage](collage.png)") || !strings.Contains(string(notes), "Song 3") {
			t.Errorf("unexpected Markdown: %q", notes)
		}
	})

	t.Run("reuses a valid token", func(t *testing.T) {
		api := newFakeSpotify(t)
		config := testConfig(t, api)
		runner := NewRunner(RunnerOpts{
			Config: config,
			Output: &bytes.Buffer{},
			Logger: quietLogger(),
			OpenBrowser: func(string) error {
				t.Error("browser should not open with a valid token")
				return nil
			},
		})
		runner.session.SetToken("tok-vibes", time.Hour)

		path := filepath.Join(t.TempDir(), "collage.png")
		if err := runner.app().Run(context.Background(), []string{"vibes", "collage", "-o", path}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(api.tokenForms()) != 0 {
			t.Error("expected no token exchange")
		}
	})

	t.Run("missing client id", func(t *testing.T) {
		api := newFakeSpotify(t)
		config := testConfig(t, api)
		config.Spotify.ClientID = shared.PlaceholderClientID
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: quietLogger()})

		err := runner.app().Run(context.Background(), []string{"vibes", "collage"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("invalid layout", func(t *testing.T) {
		api := newFakeSpotify(t)
		config := testConfig(t, api)
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: quietLogger()})

		err := runner.app().Run(context.Background(), []string{"vibes", "collage", "--layout", "three"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("times out without a redirect", func(t *testing.T) {
		api := newFakeSpotify(t)
		config := testConfig(t, api)
		config.Server.WaitSeconds = 1
		runner := NewRunner(RunnerOpts{
			Config:      config,
			Output:      &bytes.Buffer{},
			Logger:      quietLogger(),
			OpenBrowser: func(string) error { return nil },
		})

		err := runner.app().Run(context.Background(), []string{"vibes", "collage"})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("prints the URL when the browser cannot open", func(t *testing.T) {
		api := newFakeSpotify(t)
		config := testConfig(t, api)
		config.Server.WaitSeconds = 1
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:      config,
			Output:      output,
			Logger:      quietLogger(),
			OpenBrowser: func(string) error { return errors.New("no display") },
		})

		runner.app().Run(context.Background(), []string{"vibes", "collage"})
		if !strings.Contains(output.String(), api.URL+"/authorize?") {
			t.Errorf("expected authorization URL in output, got %q", output.String())
		}
		if !strings.Contains(output.String(), "Open this URL in your browser") {
			t.Errorf("expected instructions in output, got %q", output.String())
		}
	})
}

func TestTopCommand(t *testing.T) {
	api := newFakeSpotify(t)
	config := testConfig(t, api)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:      config,
		Output:      output,
		Logger:      quietLogger(),
		OpenBrowser: approve(t, config),
	})

	if err := runner.app().Run(context.Background(), []string{"vibes", "top", "--json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var tracks []services.Track
	if err := json.Unmarshal(output.Bytes(), &tracks); err != nil {
		t.Fatalf("expected JSON output: %v (%q)", err, output.String())
	}
	if len(tracks) != 4 {
		t.Fatalf("expected 4 tracks, got %d", len(tracks))
	}
	if tracks[0].Name != "Song 0" || tracks[0].CoverURL == "" {
		t.Errorf("unexpected first track: %+v", tracks[0])
	}
}

func TestTopCommandFormat(t *testing.T) {
	api := newFakeSpotify(t)
	config := testConfig(t, api)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: quietLogger()})
	runner.session.SetToken("tok-vibes", time.Hour)

	if err := runner.app().Run(context.Background(), []string{"vibes", "top", "--format", "csv"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 5 || !strings.HasPrefix(lines[0], "Rank,ID,Name") {
		t.Errorf("expected CSV header and 4 rows, got %q", output.String())
	}

	err := runner.app().Run(context.Background(), []string{"vibes", "top", "--format", "xml"})
	if !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAuthURLAndComplete(t *testing.T) {
	api := newFakeSpotify(t)
	config := testConfig(t, api)
	config.Session.Store = "sqlite"

	urlOutput := &bytes.Buffer{}
	first := NewRunner(RunnerOpts{Config: config, Output: urlOutput, Logger: quietLogger()})
	if err := first.app().Run(context.Background(), []string{"vibes", "auth", "url"}); err != nil {
		t.Fatalf("auth url failed: %v", err)
	}

	authURL, err := url.Parse(strings.TrimSpace(urlOutput.String()))
	if err != nil {
		t.Fatalf("expected a URL, got %q", urlOutput.String())
	}
	q := authURL.Query()
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Errorf("expected an S256 challenge, got %v", q)
	}
	if first.db != nil {
		t.Error("expected the session database to be closed after the command")
	}

	path := filepath.Join(t.TempDir(), "collage.png")
	redirect := config.Spotify.RedirectURI + "?code=zq9authcode&state=" + url.QueryEscape(q.Get("state"))
	completeOutput := &bytes.Buffer{}
	second := NewRunner(RunnerOpts{Config: config, Output: completeOutput, Logger: quietLogger()})

	err = second.app().Run(context.Background(), []string{"vibes", "auth", "complete", "--redirect", redirect, "--output", path})
	if err != nil {
		t.Fatalf("auth complete failed: %v", err)
	}

	forms := api.tokenForms()
	if len(forms) != 1 {
		t.Fatalf("expected 1 token exchange, got %d", len(forms))
	}
	if got := auth.DeriveChallenge(auth.Verifier(forms[0].Get("code_verifier"))); string(got) != q.Get("code_challenge") {
		t.Errorf("expected verifier matching challenge %q, got %q", q.Get("code_challenge"), got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected collage at %s: %v", path, err)
	}

	t.Run("replaying the redirect fails", func(t *testing.T) {
		third := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: quietLogger()})
		err := third.app().Run(context.Background(), []string{"vibes", "auth", "complete", "--redirect", redirect})
		if err == nil {
			t.Fatal("expected an error for a consumed verifier")
		}
		if len(api.tokenForms()) != 1 {
			t.Error("expected no second token exchange")
		}
	})

	t.Run("redirect without a response", func(t *testing.T) {
		fourth := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: quietLogger()})
		err := fourth.app().Run(context.Background(), []string{"vibes", "auth", "complete", "--redirect", config.Spotify.RedirectURI})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	for _, key := range []string{shared.EnvClientID, shared.EnvRedirectURI, shared.EnvFlow, shared.EnvLayout} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	output := &bytes.Buffer{}

	runner := NewRunner(RunnerOpts{Output: output, Logger: quietLogger()})
	if err := runner.app().Run(context.Background(), []string{"vibes", "setup"}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Errorf("expected config file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "vibes.db")); err != nil {
		t.Errorf("expected session database: %v", err)
	}
	if !strings.Contains(output.String(), "Set spotify.client_id") {
		t.Errorf("expected client id hint, got %q", output.String())
	}

	t.Run("keeps an existing config", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: quietLogger()})
		if err := runner.app().Run(context.Background(), []string{"vibes", "setup"}); err != nil {
			t.Fatalf("second setup failed: %v", err)
		}
	})
}

func TestReloginHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "token rejected by the API", err: fmt.Errorf("failed to fetch top tracks: %w", shared.ErrTokenExpired), want: true},
		{name: "no token held", err: shared.ErrNotAuthenticated, want: true},
		{name: "login timed out", err: shared.ErrTimeout, want: false},
		{name: "bad flag", err: shared.ErrInvalidArgument, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := reloginHint(tt.err)
			if got := hint != ""; got != tt.want {
				t.Errorf("reloginHint(%v) = %q, want hint %v", tt.err, hint, tt.want)
			}
		})
	}

	t.Run("revoked token drops the session", func(t *testing.T) {
		api := newFakeSpotify(t)
		config := testConfig(t, api)
		runner := NewRunner(RunnerOpts{
			Config: config,
			Output: &bytes.Buffer{},
			Logger: quietLogger(),
			OpenBrowser: func(string) error {
				t.Error("browser should not open with a locally valid token")
				return nil
			},
		})
		runner.session.SetToken("tok-revoked", time.Hour)

		err := runner.app().Run(context.Background(), []string{"vibes", "top"})
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
		if reloginHint(err) == "" {
			t.Error("expected a sign-in hint")
		}
		if runner.session.IsValid() {
			t.Error("expected the revoked token to be cleared")
		}
	})
}

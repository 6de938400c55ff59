package server

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/shared"
)

// FragmentSuffix is appended to the redirect path for the route that receives forwarded fragments.
const FragmentSuffix = "/fragment"

// Completer consumes the redirect URL the browser landed on.
//
// It returns false with a nil error when the URL carries no authorization response.
type Completer interface {
	Complete(ctx context.Context, redirect *url.URL) (bool, error)
}

// CallbackResult contains the outcome of the one processed callback.
type CallbackResult struct {
	err error
}

func (c CallbackResult) Error() error {
	return c.err
}

// CallbackOpts configures a [CallbackHandler].
type CallbackOpts struct {
	// RedirectURI is the registered redirect URI; its path becomes the callback route.
	RedirectURI string
	// Fragment selects the implicit grant, where the response arrives in the URL fragment.
	Fragment bool
	Logger   *log.Logger
}

// CallbackHandler handles the OAuth redirect for both the code and implicit flows.
// Implements the Handler interface for registration with a Router.
type CallbackHandler struct {
	ctx         context.Context
	completer   Completer
	redirectURI *url.URL
	fragment    bool
	logger      *log.Logger

	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler that calls completer with ctx.
//
// ctx outlives individual requests so that a browser closing the tab does not cancel a token exchange.
func NewCallbackHandler(ctx context.Context, completer Completer, opts CallbackOpts) (*CallbackHandler, error) {
	redirect, err := url.Parse(opts.RedirectURI)
	if err != nil || redirect.Host == "" {
		return nil, errors.Join(shared.ErrInvalidConfig, errors.New("redirect_uri must be an absolute URL"), err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &CallbackHandler{
		ctx:         ctx,
		completer:   completer,
		redirectURI: redirect,
		fragment:    opts.Fragment,
		logger:      logger,
		resultChan:  make(chan CallbackResult, 1),
	}, nil
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.callbackPath(), h.fragmentPath()}
}

func (h *CallbackHandler) callbackPath() string {
	if h.redirectURI.Path == "" {
		return "/"
	}
	return h.redirectURI.Path
}

func (h *CallbackHandler) fragmentPath() string {
	return strings.TrimRight(h.callbackPath(), "/") + FragmentSuffix
}

// bareRedirect is the redirect URI without query or fragment.
func (h *CallbackHandler) bareRedirect() string {
	u := *h.redirectURI
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// ServeHTTP handles the redirect request.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == h.fragmentPath():
		// The forwarder page sends the fragment back as the query string.
		redirect, err := url.Parse(h.bareRedirect() + "#" + r.URL.RawQuery)
		if err != nil {
			h.render(w, http.StatusBadRequest, failurePage("Malformed redirect", "The forwarded response could not be read."))
			return
		}
		h.process(w, redirect)
	case h.fragment && r.URL.Query().Get("error") == "":
		// Tokens arrive in the fragment; denials arrive in the query and fall through.
		h.render(w, http.StatusOK, forwardPage(h.fragmentPath()))
	default:
		redirect, _ := url.Parse(h.bareRedirect())
		redirect.RawQuery = r.URL.RawQuery
		h.process(w, redirect)
	}
}

func (h *CallbackHandler) process(w http.ResponseWriter, redirect *url.URL) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	ok, err := h.completer.Complete(h.ctx, redirect)
	if err != nil {
		h.Send(CallbackResult{err: err})
		h.render(w, failureStatus(err), failurePage("Authorization Failed", err.Error()))
		return
	}

	if !ok {
		h.mu.Lock()
		h.callbackHit = false
		h.mu.Unlock()
		h.render(w, http.StatusBadRequest, failurePage("No Pending Login", "This page did not carry an authorization response."))
		return
	}

	h.Send(CallbackResult{})
	h.render(w, http.StatusOK, successPage())
}

func failureStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrAuthorizationDenied),
		errors.Is(err, shared.ErrStateMismatch),
		errors.Is(err, shared.ErrMissingVerifier):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving login completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

func (h *CallbackHandler) render(w http.ResponseWriter, status int, p page) {
	p.CleanURL = h.bareRedirect()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		h.logger.Warn("failed to render callback page", "error", err)
	}
}

type page struct {
	Title    string
	Message  string
	Color    string
	Forward  string
	CleanURL string
}

func successPage() page {
	return page{
		Title:   "✓ Authorization Successful",
		Message: "You can close this window and return to the terminal.",
		Color:   "#1DB954",
	}
}

func failurePage(title, message string) page {
	return page{Title: title, Message: message, Color: "#ff3b30"}
}

func forwardPage(target string) page {
	return page{Title: "Completing sign in…", Message: "One moment.", Color: "#666", Forward: target}
}

var pageTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 style="color: {{.Color}}; margin: 0 0 1rem 0;">{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
    <script>
{{- if .Forward}}
        window.location.replace({{.Forward}} + "?" + window.location.hash.substring(1));
{{- else}}
        window.history.replaceState(null, "", {{.CleanURL}});
{{- end}}
    </script>
</body>
</html>
`))

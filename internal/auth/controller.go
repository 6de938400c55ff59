package auth

import (
	"context"
	"io"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
)

// State is the position of a login attempt in the controller's state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingRedirect
	StateExchangingCode
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateExchangingCode:
		return "exchanging_code"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Controller runs one [Strategy] against a [Session] and records where the attempt stands.
type Controller struct {
	mu       sync.Mutex
	strategy Strategy
	session  *Session
	logger   *log.Logger
	state    State
	err      error
}

// NewController creates a controller in [StateIdle]. A nil logger discards output.
func NewController(strategy Strategy, session *Session, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{
		strategy: strategy,
		session:  session,
		logger:   logger.With("flow", strategy.Name()),
		state:    StateIdle,
	}
}

// Begin starts a login attempt and returns the authorization URL.
func (c *Controller) Begin(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	authURL, err := c.strategy.BeginLogin(ctx)
	if err != nil {
		c.fail(err)
		return "", err
	}

	c.transition(StateAwaitingRedirect)
	return authURL, nil
}

// Complete consumes the redirect the browser landed on.
//
// It returns false with a nil error when the redirect has no authorization response, leaving
// the controller idle. Any failure leaves it in [StateFailed] with the error available from [Controller.Err].
func (c *Controller) Complete(ctx context.Context, redirect *url.URL) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.strategy.HasResponse(redirect) {
		c.logger.Debug("no authorization response in redirect")
		c.transition(StateIdle)
		return false, nil
	}

	c.transition(StateExchangingCode)

	ok, err := c.strategy.CompleteLogin(ctx, redirect)
	if err != nil {
		c.fail(err)
		return false, err
	}
	if !ok {
		c.transition(StateIdle)
		return false, nil
	}

	c.transition(StateAuthenticated)
	c.logger.Info("login complete", "expires", c.session.Expiry())
	return true, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the reason for [StateFailed], or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Session returns the session the controller writes to.
func (c *Controller) Session() *Session {
	return c.session
}

// Strategy returns the strategy in use.
func (c *Controller) Strategy() Strategy {
	return c.strategy
}

func (c *Controller) transition(next State) {
	if next != StateFailed {
		c.err = nil
	}
	c.logger.Debug("login state", "from", c.state, "to", next)
	c.state = next
}

func (c *Controller) fail(err error) {
	c.transition(StateFailed)
	c.err = err
	c.logger.Error("login failed", "error", err)
}

// Package session implements the authentication and polling state machine
// behind the now-playing display.
//
// A Controller owns the session token, the polling timer and the latest
// Snapshot. All of that state is mutated by a single loop goroutine started by
// Run; the exported commands hand work to the loop and return once it has been
// applied. HTTP calls for polls run on helper goroutines and post their result
// back to the loop, which discards results that belong to an earlier Active
// period.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/auth"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/spotify"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/store"
)

// DefaultPollInterval is used when Config.PollInterval is not set.
const DefaultPollInterval = time.Second

// VerifierLength is the length of generated PKCE code verifiers.
const VerifierLength = 128

// ErrNotRunning is returned by commands when the loop has exited.
var ErrNotRunning = errors.New("session controller is not running")

// Config holds controller configuration.
type Config struct {
	PollInterval           time.Duration // Timer interval while Active
	RecentlyPlayedFallback bool          // Show the last played item when nothing is playing
	PauseWhenHidden        bool          // Hidden renderers pause polling
	IncludeEpisodes        bool          // Ask for podcast episodes as well as tracks
	VerifyOnStart          bool          // Check the token against the profile endpoint before polling
}

// DefaultConfig enables every optional capability.
func DefaultConfig() Config {
	return Config{
		PollInterval:           DefaultPollInterval,
		RecentlyPlayedFallback: true,
		PauseWhenHidden:        true,
		IncludeEpisodes:        true,
		VerifyOnStart:          true,
	}
}

// Authenticator is the subset of *auth.Flow used by the controller.
type Authenticator interface {
	Configured() bool
	PKCE() bool
	AuthorizationURL(codeChallenge string) string
	ExchangeCodeForToken(ctx context.Context, code, verifier string) (*auth.Token, error)
}

// TokenStore is the subset of *store.TokenStore used by the controller.
type TokenStore interface {
	Save(ctx context.Context, token string, expiresAt time.Time) error
	Load(ctx context.Context) (*store.Credentials, error)
	Clear(ctx context.Context) error
	SaveRefreshToken(ctx context.Context, token string) error
	SaveCodeVerifier(ctx context.Context, verifier string) error
	CodeVerifier(ctx context.Context) (string, error)
	DeleteCodeVerifier(ctx context.Context) error
}

// Option customizes a Controller.
type Option func(*Controller)

// WithListener adds a listener. Listeners are called in the order added.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		c.listeners = append(c.listeners, l)
	}
}

// WithTicker replaces the timer implementation.
func WithTicker(f TickerFunc) Option {
	return func(c *Controller) {
		c.newTicker = f
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller drives the session state machine.
type Controller struct {
	cfg       Config
	auth      Authenticator
	store     TokenStore
	api       API
	location  Location
	listeners Multi
	newTicker TickerFunc
	now       func() time.Time
	logger    zerolog.Logger

	cmds    chan command
	results chan pollResult
	done    chan struct{}
	wg      sync.WaitGroup

	// Owned by the loop goroutine.
	state   State
	creds   *store.Credentials
	ticker  Ticker
	epoch   uint64
	polling bool
	visible bool

	// Copy for renderers.
	mu       sync.RWMutex
	view     State
	snapshot Snapshot
	lastErr  *Error
}

type command struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

type pollResult struct {
	id       string
	epoch    uint64
	snapshot Snapshot
	err      error
}

// New creates a Controller. Nothing happens until Run is called.
func New(cfg Config, authn Authenticator, st TokenStore, api API, loc Location, logger zerolog.Logger, opts ...Option) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	c := &Controller{
		cfg:       cfg,
		auth:      authn,
		store:     st,
		api:       api,
		location:  loc,
		newTicker: NewTicker,
		now:       time.Now,
		logger:    logger.With().Str("component", "session").Logger(),
		cmds:      make(chan command),
		results:   make(chan pollResult, 1),
		done:      make(chan struct{}),
		visible:   true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run performs the startup check and then serves ticks, poll results and
// commands until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().
		Dur("interval", c.cfg.PollInterval).
		Bool("pkce", c.auth.PKCE()).
		Msg("Starting session controller")

	defer close(c.done)
	defer c.wg.Wait()
	defer c.disarm()

	c.start(ctx)

	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C()
		}

		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Session controller stopped")
			return ctx.Err()
		case <-tick:
			c.poll(ctx, "tick")
		case res := <-c.results:
			c.handleResult(ctx, res)
		case cmd := <-c.cmds:
			cmd.fn(ctx)
			close(cmd.done)
		}
	}
}

// ForceRefresh polls once outside the timer schedule. The timer is not reset.
func (c *Controller) ForceRefresh(ctx context.Context) error {
	return c.do(ctx, func(loopCtx context.Context) {
		c.poll(loopCtx, "force")
	})
}

// SetVisible reports renderer visibility. With PauseWhenHidden, hiding an
// Active session pauses it and showing a Paused one resumes it.
func (c *Controller) SetVisible(ctx context.Context, visible bool) error {
	return c.do(ctx, func(loopCtx context.Context) {
		c.visible = visible
		if !c.cfg.PauseWhenHidden {
			return
		}
		switch {
		case !visible && c.state == Active:
			c.setState(Paused)
		case visible && c.state == Paused:
			c.enterActive(loopCtx)
		}
	})
}

// Logout clears the stored credentials and returns to LoggedOut.
func (c *Controller) Logout(ctx context.Context) error {
	return c.do(ctx, func(loopCtx context.Context) {
		if err := c.store.Clear(loopCtx); err != nil {
			c.logger.Error().Err(err).Msg("Failed to clear credentials")
		}
		c.creds = nil
		c.setSnapshot(Snapshot{})
		c.setState(LoggedOut)
	})
}

// Retry re-runs the startup check from any state. Renderers call it after the
// redirect has landed or after a fatal error was resolved.
func (c *Controller) Retry(ctx context.Context) error {
	return c.do(ctx, c.start)
}

// LoginURL returns the authorization URL. With PKCE a new verifier is stored
// as the pending authorization.
func (c *Controller) LoginURL(ctx context.Context) (string, error) {
	if !c.auth.Configured() {
		return "", ErrConfigMissing
	}
	if !c.auth.PKCE() {
		return c.auth.AuthorizationURL(""), nil
	}

	verifier, err := auth.GenerateCodeVerifier(VerifierLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	if err := c.store.SaveCodeVerifier(ctx, verifier); err != nil {
		return "", fmt.Errorf("failed to store code verifier: %w", err)
	}
	return c.auth.AuthorizationURL(auth.DeriveCodeChallenge(verifier)), nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Snapshot returns the latest snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// LastError returns the most recent error, or nil once a later poll succeeded.
func (c *Controller) LastError() *Error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Controller) do(ctx context.Context, fn func(context.Context)) error {
	cmd := command{fn: fn, done: make(chan struct{})}

	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// start is the startup check: redirect fragment, then PKCE query, then the
// stored token.
func (c *Controller) start(ctx context.Context) {
	c.setError(nil)
	c.setState(CheckingAuth)

	if !c.auth.Configured() {
		c.fail(&Error{Kind: KindConfigMissing, Message: "Missing client ID or redirect URI in configuration"})
		return
	}

	fragment, query := c.location.Fragment(), c.location.Query()
	if fragment != "" || query != "" {
		c.location.Clear()
	}

	redirect := auth.ExtractTokenFromFragment(fragment)
	switch redirect.Kind {
	case auth.Granted:
		expiresAt := auth.ExpiresAt(c.now(), redirect.ExpiresIn)
		if err := c.store.Save(ctx, redirect.AccessToken, expiresAt); err != nil {
			c.logger.Error().Err(err).Msg("Failed to persist token")
		}
		c.logger.Info().Time("expires_at", expiresAt).Msg("Token received from redirect")
		c.activate(ctx, &store.Credentials{AccessToken: redirect.AccessToken, ExpiresAt: expiresAt})
		return
	case auth.Denied:
		c.fail(&Error{Kind: KindAuthDenied, Message: "Authentication failed: " + redirect.Error})
		return
	}

	if c.auth.PKCE() {
		code := auth.ExtractCodeFromQuery(query)
		switch code.Kind {
		case auth.Denied:
			c.fail(&Error{Kind: KindAuthDenied, Message: "Authentication failed: " + code.Error})
			return
		case auth.Code:
			c.exchange(ctx, code.Code)
			return
		}
	}

	creds, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to load stored token")
	}
	if !creds.Valid(c.now()) {
		if creds != nil {
			c.logger.Info().Time("expired_at", creds.ExpiresAt).Msg("Stored token expired")
		}
		c.setState(LoggedOut)
		return
	}

	c.activate(ctx, creds)
}

func (c *Controller) exchange(ctx context.Context, code string) {
	verifier, err := c.store.CodeVerifier(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to load code verifier")
	}

	tok, err := c.auth.ExchangeCodeForToken(ctx, code, verifier)
	if err != nil {
		var exchangeErr *auth.TokenExchangeError
		if errors.As(err, &exchangeErr) {
			c.report(&Error{Kind: KindTransientHTTP, Message: "Token exchange failed: " + exchangeErr.Status, Err: err})
		} else {
			c.report(&Error{Kind: KindNetwork, Message: "Token exchange failed", Err: err})
		}
		if err := c.store.DeleteCodeVerifier(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to delete code verifier")
		}
		c.setState(LoggedOut)
		return
	}

	if err := c.store.Save(ctx, tok.AccessToken, tok.ExpiresAt); err != nil {
		c.logger.Error().Err(err).Msg("Failed to persist token")
	}
	if tok.RefreshToken != "" {
		if err := c.store.SaveRefreshToken(ctx, tok.RefreshToken); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to persist refresh token")
		}
	}
	if err := c.store.DeleteCodeVerifier(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to delete code verifier")
	}

	c.logger.Info().Time("expires_at", tok.ExpiresAt).Msg("Authorization code exchanged")
	c.activate(ctx, &store.Credentials{
		AccessToken:  tok.AccessToken,
		ExpiresAt:    tok.ExpiresAt,
		RefreshToken: tok.RefreshToken,
	})
}

// activate optionally verifies creds and then enters Active.
func (c *Controller) activate(ctx context.Context, creds *store.Credentials) {
	if c.cfg.VerifyOnStart {
		user, err := c.api.VerifyToken(ctx, creds.AccessToken)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, spotify.ErrUnauthorized):
			c.expire(ctx, &Error{Kind: KindTokenExpired, Message: "Session expired, please log in again", Err: err})
			return
		case err != nil:
			c.report(&Error{Kind: KindNetwork, Message: "Could not verify token", Err: err})
		default:
			c.logger.Info().Str("user", user.DisplayName).Str("user_id", user.ID).Msg("Token verified")
		}
	}

	c.creds = creds

	if c.cfg.PauseWhenHidden && !c.visible {
		c.setState(Paused)
		return
	}
	c.enterActive(ctx)
}

// enterActive arms the timer and polls immediately.
func (c *Controller) enterActive(ctx context.Context) {
	c.setState(Active)
	c.arm()
	c.poll(ctx, "activate")
}

// poll launches one fetch unless one is already in flight.
func (c *Controller) poll(ctx context.Context, reason string) {
	if c.state != Active || c.creds == nil {
		return
	}
	if c.polling {
		c.logger.Debug().Str("reason", reason).Msg("Poll already in flight, skipping")
		return
	}
	if !c.creds.Valid(c.now()) {
		c.expire(ctx, &Error{Kind: KindTokenExpired, Message: "Session expired, please log in again"})
		return
	}

	c.polling = true
	id := uuid.NewString()
	epoch := c.epoch
	token := c.creds.AccessToken
	opts := FetchOptions{
		IncludeEpisodes:        c.cfg.IncludeEpisodes,
		RecentlyPlayedFallback: c.cfg.RecentlyPlayedFallback,
	}

	c.logger.Debug().Str("poll_id", id).Str("reason", reason).Msg("Polling")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		snapshot, err := FetchSnapshot(ctx, c.api, token, opts)
		select {
		case c.results <- pollResult{id: id, epoch: epoch, snapshot: snapshot, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) handleResult(ctx context.Context, res pollResult) {
	if res.epoch != c.epoch || c.state != Active {
		c.logger.Debug().Str("poll_id", res.id).Msg("Discarding stale poll result")
		return
	}
	c.polling = false

	if res.err != nil {
		var sessErr *Error
		if !errors.As(res.err, &sessErr) {
			sessErr = networkError(res.err)
		}
		if sessErr.Kind == KindTokenExpired {
			c.expire(ctx, sessErr)
			return
		}
		c.logger.Debug().Str("poll_id", res.id).Err(sessErr).Msg("Poll failed")
		c.report(sessErr)
		return
	}

	c.setError(nil)
	c.setSnapshot(res.snapshot)
	c.listeners.OnTrackUpdate(res.snapshot)
}

// expire clears credentials after the token was rejected or ran out.
func (c *Controller) expire(ctx context.Context, err *Error) {
	if clearErr := c.store.Clear(ctx); clearErr != nil {
		c.logger.Error().Err(clearErr).Msg("Failed to clear credentials")
	}
	c.creds = nil
	c.setSnapshot(Snapshot{})
	c.report(err)
	c.setState(LoggedOut)
}

func (c *Controller) fail(err *Error) {
	c.report(err)
	c.setState(Failed)
}

func (c *Controller) report(err *Error) {
	c.setError(err)
	c.listeners.OnError(err)
}

// setState transitions and notifies. Leaving Active stops the timer and
// invalidates any poll in flight.
func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}

	prev := c.state
	if s != Active {
		c.disarm()
		if prev == Active {
			c.epoch++
			c.polling = false
		}
	}
	c.state = s

	c.mu.Lock()
	c.view = s
	c.mu.Unlock()

	c.logger.Info().
		Str("from", prev.String()).
		Str("to", s.String()).
		Msg("State changed")
	c.listeners.OnStateChange(s)
}

func (c *Controller) arm() {
	if c.ticker != nil {
		return
	}
	c.ticker = c.newTicker(c.cfg.PollInterval)
	c.logger.Debug().Dur("interval", c.cfg.PollInterval).Msg("Timer armed")
}

func (c *Controller) disarm() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
	c.logger.Debug().Msg("Timer disarmed")
}

func (c *Controller) setSnapshot(s Snapshot) {
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()
}

func (c *Controller) setError(err *Error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

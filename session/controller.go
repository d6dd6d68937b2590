package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/textlane/session-client/internal/utils"
	"github.com/textlane/session-client/token"
	"github.com/textlane/session-client/tokenstore"
	"github.com/textlane/session-client/transport"
	"github.com/textlane/session-client/users"
)

// DefaultRefreshInterval is how often the background loop renews the
// access token while authenticated. Kept shorter than the refresh margin
// so renewal lands before a token ever leaves the margin window.
const DefaultRefreshInterval = 14 * time.Minute

// Deps holds the collaborators the controller cannot run without.
type Deps struct {
	Transport transport.AuthTransport
	Store     tokenstore.Store
}

// TickerFactory produces the recurring-refresh tick channel plus its stop
// function. Injectable so tests can drive ticks by hand.
type TickerFactory func(interval time.Duration) (ticks <-chan time.Time, stop func())

// Option modifies a Controller during construction.
type Option func(*Controller)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// WithRefreshMargin sets the window before expiry in which a token is
// treated as due for renewal.
func WithRefreshMargin(margin time.Duration) Option {
	return func(c *Controller) {
		c.refreshMargin = margin
	}
}

// WithRefreshInterval sets the background refresh cadence. Zero disables
// the loop.
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Controller) {
		c.refreshEvery = interval
	}
}

// WithLogger sets the controller's logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTickerFactory replaces the real ticker (primarily for testing).
func WithTickerFactory(factory TickerFactory) Option {
	return func(c *Controller) {
		c.tickerFactory = factory
	}
}

// refreshOutcome is shared by every caller that joined one in-flight
// refresh. err is written before done is closed.
type refreshOutcome struct {
	done chan struct{}
	err  error
}

// Controller owns the process-wide session: tokens, the current user, and
// the background refresh loop. All mutation is serialized behind one
// mutex; consumers observe it through Snapshot and Subscribe.
type Controller struct {
	deps Deps

	nowTime       func() time.Time
	refreshMargin time.Duration
	refreshEvery  time.Duration
	tickerFactory TickerFactory
	logger        *zerolog.Logger
	validate      *validator.Validate

	mu        sync.Mutex
	state     State
	user      users.User
	hasUser   bool
	tokens    tokenstore.Tokens
	lastError string
	closed    bool

	inflight   *refreshOutcome
	stopTicker func()

	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// New creates a Controller with required dependencies. Optional
// configuration can be provided via options (e.g. WithNowTime for
// testing).
func New(deps Deps, options ...Option) (*Controller, error) {
	if deps.Transport == nil {
		return nil, errors.Wrap(ErrTransportRequired, "[session.New]")
	}
	if deps.Store == nil {
		return nil, errors.Wrap(ErrStoreRequired, "[session.New]")
	}

	nop := zerolog.Nop()
	c := &Controller{
		deps:          deps,
		nowTime:       time.Now,
		refreshMargin: token.DefaultRefreshMargin,
		refreshEvery:  DefaultRefreshInterval,
		tickerFactory: func(interval time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(interval)
			return t.C, t.Stop
		},
		logger:      &nop,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		subscribers: make(map[int]func(Snapshot)),
		state:       StateUninitialized,
	}

	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Bootstrap hydrates the session from the token store and settles into
// Authenticated or Unauthenticated. It never returns an error: background
// determination only updates the error field. Calling it more than once
// is a no-op.
func (c *Controller) Bootstrap(ctx context.Context) {
	proceeded := false
	c.commitIf(func() bool {
		if c.closed || c.state != StateUninitialized {
			return false
		}
		c.state = StateLoading
		proceeded = true
		return true
	})
	if !proceeded {
		return
	}

	stored, err := c.deps.Store.Load()
	if err != nil {
		// Stores fail open; a hard load error still reads as logged out.
		c.logger.Warn().Err(err).Msg("token store load failed, starting logged out")
		stored = tokenstore.Tokens{}
	}
	if stored.AccessToken == "" {
		c.commit(func() {
			c.state = StateUnauthenticated
		})
		return
	}

	c.mu.Lock()
	c.tokens = stored
	c.mu.Unlock()

	switch token.Classify(stored.AccessToken, c.nowTime(), c.refreshMargin) {
	case token.StatusExpired, token.StatusMalformed:
		if err := c.refresh(ctx); err != nil {
			c.settleUnusableToken(err)
			return
		}
		c.fetchUser(ctx)
	case token.StatusExpiringSoon:
		if err := c.refresh(ctx); err != nil {
			if !transport.IsNetworkError(err) {
				return // terminal: refresh already cleared the session
			}
			// Transient failure, the old token is still inside its margin.
			c.logger.Debug().Err(err).Msg("early refresh failed, continuing with current token")
		}
		c.fetchUser(ctx)
	default:
		c.fetchUser(ctx)
	}
}

// settleUnusableToken handles a failed refresh when no usable access
// token remains. Terminal refresh failures have already cleared the
// session; a network failure parks it logged out with the tokens kept so
// a later bootstrap can retry.
func (c *Controller) settleUnusableToken(err error) {
	if transport.IsNetworkError(err) {
		c.commit(func() {
			c.state = StateUnauthenticated
			c.lastError = msgServerUnreachable
		})
	}
}

// fetchUser resolves the account behind the current access token and
// settles the bootstrap outcome.
func (c *Controller) fetchUser(ctx context.Context) {
	c.mu.Lock()
	access := c.tokens.AccessToken
	c.mu.Unlock()

	user, err := c.deps.Transport.CurrentUser(ctx, access)
	switch {
	case err == nil:
		c.commitAuthenticated(*user)

	case transport.IsAuthError(err):
		// The backend rejected the token outright: renew once, retry once.
		if rerr := c.refresh(ctx); rerr != nil {
			c.settleUnusableToken(rerr)
			return
		}
		c.mu.Lock()
		access = c.tokens.AccessToken
		c.mu.Unlock()

		user, err = c.deps.Transport.CurrentUser(ctx, access)
		switch {
		case err == nil:
			c.commitAuthenticated(*user)
		case transport.IsNetworkError(err):
			c.commit(func() {
				c.state = StateUnauthenticated
				c.lastError = msgServerUnreachable
			})
		default:
			c.terminalClear(msgSessionExpired)
		}

	case transport.IsNetworkError(err):
		c.commit(func() {
			c.lastError = msgServerUnreachable
			if !c.hasUser {
				// Never authenticated in this process: fall back to
				// logged out rather than hanging in limbo.
				c.state = StateUnauthenticated
			}
		})

	default:
		c.commit(func() {
			c.state = StateUnauthenticated
			c.lastError = err.Error()
		})
	}
}

// Login exchanges credentials for a session. A definitive rejection
// clears any existing session and surfaces the backend's message; a
// transient failure leaves state untouched.
func (c *Controller) Login(ctx context.Context, creds transport.Credentials) error {
	if err := c.guardOpen(); err != nil {
		return err
	}
	if err := c.validate.Struct(creds); err != nil {
		c.commit(func() { c.lastError = msgInvalidInput })
		return errors.Wrap(err, "[Controller.Login] invalid credentials payload")
	}

	res, err := c.deps.Transport.Login(ctx, creds)
	if err != nil {
		c.recordSignInFailure(err)
		return err
	}
	c.installSession(res)
	return nil
}

// Register creates an account and signs it in, with the same failure
// handling as Login.
func (c *Controller) Register(ctx context.Context, reg transport.Registration) error {
	if err := c.guardOpen(); err != nil {
		return err
	}
	if err := c.validate.Struct(reg); err != nil {
		c.commit(func() { c.lastError = msgInvalidInput })
		return errors.Wrap(err, "[Controller.Register] invalid registration payload")
	}

	res, err := c.deps.Transport.Register(ctx, reg)
	if err != nil {
		c.recordSignInFailure(err)
		return err
	}
	c.installSession(res)
	return nil
}

// Logout revokes the access token remotely on a best-effort basis and
// unconditionally clears the local session. Calling it twice is safe.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	access := c.tokens.AccessToken
	c.mu.Unlock()

	if access != "" {
		if err := c.deps.Transport.Logout(ctx, access); err != nil {
			c.logger.Warn().Err(err).Msg("remote logout failed, clearing local session anyway")
		}
	}
	c.terminalClear("")
}

// Refresh renews the access token on demand. Concurrent callers share a
// single in-flight request and observe the same outcome. A terminal
// failure clears the session before the error is returned.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// ReloadUser re-fetches the account record, picking up profile changes
// made elsewhere. Connectivity loss never logs the session out; only a
// definitive rejection of both the access and refresh tokens does.
func (c *Controller) ReloadUser(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateAuthenticated {
		c.mu.Unlock()
		return nil
	}
	access := c.tokens.AccessToken
	c.mu.Unlock()

	user, err := c.deps.Transport.CurrentUser(ctx, access)
	switch {
	case err == nil:
		c.adoptUser(*user)
		return nil

	case transport.IsNetworkError(err):
		c.commit(func() { c.lastError = msgServerUnreachable })
		return err

	case transport.IsAuthError(err):
		if rerr := c.refresh(ctx); rerr != nil {
			return rerr // terminal failures already cleared the session
		}
		c.mu.Lock()
		access = c.tokens.AccessToken
		c.mu.Unlock()

		user, err = c.deps.Transport.CurrentUser(ctx, access)
		if err != nil {
			if transport.IsNetworkError(err) {
				c.commit(func() { c.lastError = msgServerUnreachable })
				return err
			}
			c.terminalClear(msgSessionExpired)
			return err
		}
		c.adoptUser(*user)
		return nil
	}
	return err
}

// UpdateUser shallow-merges a profile edit into the current user. A
// no-op, not an error, while unauthenticated.
func (c *Controller) UpdateUser(partial users.Partial) {
	if partial.Empty() {
		return
	}
	c.commitIf(func() bool {
		if c.state != StateAuthenticated || !c.hasUser {
			return false
		}
		c.user = c.user.Merge(partial)
		return true
	})
}

// ClearError acknowledges the last failure message without touching
// tokens or state.
func (c *Controller) ClearError() {
	c.commitIf(func() bool {
		if c.lastError == "" {
			return false
		}
		c.lastError = ""
		return true
	})
}

// Snapshot returns the current consumer view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every committed
// state change. The returned cancel function stops delivery.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Close stops the refresh loop and detaches all subscribers. The
// controller rejects further operations; calling Close again is safe.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopRefreshLoopLocked()
	c.subscribers = make(map[int]func(Snapshot))
}

// refresh renews the token pair, collapsing concurrent callers onto a
// single network request.
func (c *Controller) refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if waiting := c.inflight; waiting != nil {
		c.mu.Unlock()
		select {
		case <-waiting.done:
			return waiting.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	outcome := &refreshOutcome{done: make(chan struct{})}
	c.inflight = outcome
	refreshToken := c.tokens.RefreshToken
	c.mu.Unlock()

	outcome.err = c.doRefresh(ctx, refreshToken)

	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
	close(outcome.done)
	return outcome.err
}

func (c *Controller) doRefresh(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		// Nothing to renew with: terminal by definition.
		c.terminalClear(msgSessionExpired)
		return ErrNoRefreshToken
	}

	res, err := c.deps.Transport.Refresh(ctx, refreshToken)
	if err != nil {
		if transport.IsNetworkError(err) {
			c.commit(func() { c.lastError = msgServerUnreachable })
			return err
		}
		c.terminalClear(msgSessionExpired)
		return err
	}

	renewed := tokenstore.Tokens{
		AccessToken:  res.AccessToken,
		RefreshToken: utils.ValueOr(res.RefreshToken, refreshToken),
	}
	// Persist before committing so a restart right after the swap loads
	// the pair the session is actually running on.
	if err := c.deps.Store.Save(renewed); err != nil {
		c.logger.Warn().Err(err).Msg("persisting refreshed tokens failed")
	}
	adopted := false
	c.commitIf(func() bool {
		if c.closed || c.tokens.RefreshToken != refreshToken {
			return false
		}
		c.tokens = renewed
		if c.state == StateAuthenticated {
			c.lastError = ""
		}
		adopted = true
		return true
	})
	if !adopted {
		// A logout or re-login won the race; re-align the store with
		// whatever the session is actually running on.
		c.mu.Lock()
		current := c.tokens
		c.mu.Unlock()
		if current.Empty() {
			if err := c.deps.Store.Clear(); err != nil {
				c.logger.Warn().Err(err).Msg("clearing token store failed")
			}
		} else if err := c.deps.Store.Save(current); err != nil {
			c.logger.Warn().Err(err).Msg("persisting tokens failed")
		}
		return nil
	}
	c.logger.Debug().Msg("access token refreshed")
	return nil
}

// recordSignInFailure maps a login/register failure onto session state:
// definitive rejections clear any existing session and surface the
// backend's message, transient failures leave state untouched.
func (c *Controller) recordSignInFailure(err error) {
	var authErr *transport.AuthError
	if !errors.As(err, &authErr) {
		c.commit(func() { c.lastError = msgServerUnreachable })
		return
	}

	c.mu.Lock()
	hadTokens := !c.tokens.Empty()
	c.mu.Unlock()
	if hadTokens {
		if cerr := c.deps.Store.Clear(); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("clearing token store failed")
		}
	}
	c.commit(func() {
		c.tokens = tokenstore.Tokens{}
		c.user = users.User{}
		c.hasUser = false
		c.state = StateUnauthenticated
		c.lastError = authErr.Message
		c.stopRefreshLoopLocked()
	})
}

// installSession persists and adopts a fresh login result. The store
// write happens before the in-memory commit so a process restart right
// after login observes the same session.
func (c *Controller) installSession(res *transport.LoginResult) {
	tokens := tokenstore.Tokens{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}
	if err := c.deps.Store.Save(tokens); err != nil {
		c.logger.Warn().Err(err).Msg("persisting tokens failed")
	}
	c.commit(func() {
		c.tokens = tokens
		c.user = res.User
		c.hasUser = true
		c.state = StateAuthenticated
		c.lastError = ""
		c.startRefreshLoopLocked()
	})
}

// terminalClear drops tokens, user, error state, and the refresh loop in
// one commit. Consumers never observe a half-cleared session.
func (c *Controller) terminalClear(errMsg string) {
	if err := c.deps.Store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("clearing token store failed")
	}
	c.commit(func() {
		c.tokens = tokenstore.Tokens{}
		c.user = users.User{}
		c.hasUser = false
		c.state = StateUnauthenticated
		c.lastError = errMsg
		c.stopRefreshLoopLocked()
	})
}

func (c *Controller) commitAuthenticated(user users.User) {
	c.commit(func() {
		c.user = user
		c.hasUser = true
		c.state = StateAuthenticated
		c.lastError = ""
		c.startRefreshLoopLocked()
	})
}

func (c *Controller) adoptUser(user users.User) {
	c.commitIf(func() bool {
		if c.state != StateAuthenticated {
			return false
		}
		c.user = user
		c.hasUser = true
		c.lastError = ""
		return true
	})
}

// commitIf runs mutate under the lock and publishes the resulting
// snapshot to subscribers only when mutate reports a change.
func (c *Controller) commitIf(mutate func() bool) {
	c.mu.Lock()
	if !mutate() {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) commit(mutate func()) {
	c.commitIf(func() bool {
		mutate()
		return true
	})
}

func (c *Controller) guardOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           c.state,
		IsAuthenticated: c.state == StateAuthenticated && c.hasUser && c.tokens.AccessToken != "",
		IsLoading:       c.state == StateLoading,
		Error:           c.lastError,
	}
	if c.hasUser {
		userCopy := c.user
		snap.User = &userCopy
	}
	return snap
}

// startRefreshLoopLocked starts the recurring silent-refresh loop. Must
// be called with the lock held; no-op when a loop is already running.
func (c *Controller) startRefreshLoopLocked() {
	if c.stopTicker != nil || c.refreshEvery <= 0 || c.closed {
		return
	}
	ticks, stop := c.tickerFactory(c.refreshEvery)
	stopCh := make(chan struct{})
	c.stopTicker = func() {
		stop()
		close(stopCh)
	}
	go c.refreshLoop(ticks, stopCh)
}

// stopRefreshLoopLocked cancels the refresh loop if one is running. Must
// be called with the lock held.
func (c *Controller) stopRefreshLoopLocked() {
	if c.stopTicker == nil {
		return
	}
	c.stopTicker()
	c.stopTicker = nil
}

func (c *Controller) refreshLoop(ticks <-chan time.Time, stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticks:
			c.mu.Lock()
			active := !c.closed && c.state == StateAuthenticated
			c.mu.Unlock()
			if !active {
				continue // stale tick after logout is a no-op, never an error
			}
			if err := c.refresh(context.Background()); err != nil {
				c.logger.Debug().Err(err).Msg("scheduled refresh failed")
			}
		}
	}
}

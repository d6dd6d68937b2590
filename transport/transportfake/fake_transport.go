package transportfake

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/textlane/session-client/transport"
	"github.com/textlane/session-client/users"
)

var _ transport.AuthTransport = (*FakeTransport)(nil)

// FakeTransport is a scriptable AuthTransport for tests. Behavior comes
// from the *Fn fields; unset operations fail loudly so tests declare
// exactly the traffic they expect. RefreshStarted and RefreshRelease let
// concurrency tests hold a refresh in flight.
type FakeTransport struct {
	lock sync.Mutex

	LoginCalls       int
	RegisterCalls    int
	RefreshCalls     int
	CurrentUserCalls int
	LogoutCalls      int

	LoginFn       func(creds transport.Credentials) (*transport.LoginResult, error)
	RegisterFn    func(reg transport.Registration) (*transport.LoginResult, error)
	RefreshFn     func(refreshToken string) (*transport.RefreshResult, error)
	CurrentUserFn func(accessToken string) (*users.User, error)
	LogoutFn      func(accessToken string) error

	// When non-nil, Refresh signals RefreshStarted on entry and then
	// blocks until RefreshRelease yields.
	RefreshStarted chan struct{}
	RefreshRelease chan struct{}
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

func (ft *FakeTransport) Login(_ context.Context, creds transport.Credentials) (*transport.LoginResult, error) {
	ft.lock.Lock()
	ft.LoginCalls++
	fn := ft.LoginFn
	ft.lock.Unlock()

	if fn == nil {
		return nil, errors.New("FakeTransport: LoginFn not configured")
	}
	return fn(creds)
}

func (ft *FakeTransport) Register(_ context.Context, reg transport.Registration) (*transport.LoginResult, error) {
	ft.lock.Lock()
	ft.RegisterCalls++
	fn := ft.RegisterFn
	ft.lock.Unlock()

	if fn == nil {
		return nil, errors.New("FakeTransport: RegisterFn not configured")
	}
	return fn(reg)
}

func (ft *FakeTransport) Refresh(_ context.Context, refreshToken string) (*transport.RefreshResult, error) {
	ft.lock.Lock()
	ft.RefreshCalls++
	fn := ft.RefreshFn
	started, release := ft.RefreshStarted, ft.RefreshRelease
	ft.lock.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if fn == nil {
		return nil, errors.New("FakeTransport: RefreshFn not configured")
	}
	return fn(refreshToken)
}

func (ft *FakeTransport) CurrentUser(_ context.Context, accessToken string) (*users.User, error) {
	ft.lock.Lock()
	ft.CurrentUserCalls++
	fn := ft.CurrentUserFn
	ft.lock.Unlock()

	if fn == nil {
		return nil, errors.New("FakeTransport: CurrentUserFn not configured")
	}
	return fn(accessToken)
}

func (ft *FakeTransport) Logout(_ context.Context, accessToken string) error {
	ft.lock.Lock()
	ft.LogoutCalls++
	fn := ft.LogoutFn
	ft.lock.Unlock()

	if fn == nil {
		return nil
	}
	return fn(accessToken)
}

// Calls returns a snapshot of all call counters.
func (ft *FakeTransport) Calls() (login, register, refresh, currentUser, logout int) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	return ft.LoginCalls, ft.RegisterCalls, ft.RefreshCalls, ft.CurrentUserCalls, ft.LogoutCalls
}

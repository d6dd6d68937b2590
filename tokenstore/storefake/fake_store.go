package storefake

import (
	"sync"

	"github.com/textlane/session-client/tokenstore"
)

var _ tokenstore.Store = (*FakeStore)(nil)

// FakeStore is an in-memory Store with call counters and injectable
// failures for tests.
type FakeStore struct {
	lock   sync.Mutex
	tokens tokenstore.Tokens

	LoadCalls  int
	SaveCalls  int
	ClearCalls int

	LoadErr  error
	SaveErr  error
	ClearErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (fs *FakeStore) Load() (tokenstore.Tokens, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.LoadCalls++
	if fs.LoadErr != nil {
		return tokenstore.Tokens{}, fs.LoadErr
	}
	return fs.tokens, nil
}

func (fs *FakeStore) Save(tokens tokenstore.Tokens) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.SaveCalls++
	if fs.SaveErr != nil {
		return fs.SaveErr
	}
	fs.tokens = tokens
	return nil
}

func (fs *FakeStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.ClearCalls++
	if fs.ClearErr != nil {
		return fs.ClearErr
	}
	fs.tokens = tokenstore.Tokens{}
	return nil
}

// SetTokens seeds the store, bypassing the Save counter.
func (fs *FakeStore) SetTokens(tokens tokenstore.Tokens) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.tokens = tokens
}

// Tokens returns the currently stored pair.
func (fs *FakeStore) Tokens() tokenstore.Tokens {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.tokens
}

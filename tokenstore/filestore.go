package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the token pair in a single JSON file, created with
// owner-only permissions. Saves go through a temp file and rename so a
// crash mid-write leaves either the old pair or the new one, never a
// half-written file.
type FileStore struct {
	path   string
	logger *zerolog.Logger
}

// FileStoreOption modifies a FileStore during construction.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(logger *zerolog.Logger) FileStoreOption {
	return func(fs *FileStore) {
		fs.logger = logger
	}
}

// NewFileStore creates a FileStore persisting to path.
func NewFileStore(path string, options ...FileStoreOption) *FileStore {
	nop := zerolog.Nop()
	fs := &FileStore{
		path:   path,
		logger: &nop,
	}
	for _, opt := range options {
		opt(fs)
	}
	return fs
}

// Load reads the persisted pair. A missing, unreadable, or corrupt file
// loads as an empty pair with a nil error: losing stored credentials only
// costs the user a login, whereas surfacing a storage failure would wedge
// the session.
func (fs *FileStore) Load() (Tokens, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fs.logger.Warn().Err(err).Str("path", fs.path).Msg("token file unreadable, treating as empty")
		}
		return Tokens{}, nil
	}

	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		fs.logger.Warn().Err(err).Str("path", fs.path).Msg("token file corrupt, treating as empty")
		return Tokens{}, nil
	}
	return tokens, nil
}

// Save writes both tokens in one atomic replace.
func (fs *FileStore) Save(tokens Tokens) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.Save] create parent directory")
	}

	data, err := json.Marshal(tokens)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] marshal tokens")
	}

	tmpPath := fs.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Save] write temp file")
	}
	if err := os.Rename(tmpPath, fs.path); err != nil {
		return errors.Wrap(err, "[FileStore.Save] rename into place")
	}
	return nil
}

// Clear removes the token file. Clearing an already-empty store is not an
// error.
func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove token file")
	}
	return nil
}

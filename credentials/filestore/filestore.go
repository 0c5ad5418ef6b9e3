// Package filestore persists credential entries as one file per key under a directory.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/internal/errors"
)

var _ credentials.Storage = (*FileStore)(nil)

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type FileStore struct {
	dir    string
	sealer *Sealer
}

type Option func(*FileStore)

// WithSealer encrypts entries at rest.
func WithSealer(s *Sealer) Option {
	return func(fs *FileStore) { fs.sealer = s }
}

func New(dir string, opts ...Option) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("[filestore New] directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("[filestore New] create %s: %w", dir, err)
	}
	fs := &FileStore{dir: dir}
	for _, opt := range opts {
		opt(fs)
	}
	return fs, nil
}

func (fs *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	path, err := fs.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore Load] %w", err)
	}
	if fs.sealer != nil {
		return fs.sealer.Open(data)
	}
	return data, nil
}

// Save writes to a temp file and renames it over the old entry so a crash never leaves a
// half written session behind.
func (fs *FileStore) Save(_ context.Context, key string, data []byte) error {
	path, err := fs.path(key)
	if err != nil {
		return err
	}
	if fs.sealer != nil {
		if data, err = fs.sealer.Seal(data); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(fs.dir, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("[filestore Save] %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Save] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Save] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore Save] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("[filestore Save] rename: %w", err)
	}
	return nil
}

func (fs *FileStore) Delete(_ context.Context, key string) error {
	path, err := fs.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[filestore Delete] %w", err)
	}
	return nil
}

func (fs *FileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: storage key %q", errors.ErrInvalidRequest, key)
	}
	return filepath.Join(fs.dir, key+".json"), nil
}

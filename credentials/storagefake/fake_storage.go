package storagefake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/internal/errors"
)

var _ credentials.Storage = (*FakeStorage)(nil)

// FakeStorage keeps entries in memory. It is also the "memory" backend of the CLI.
type FakeStorage struct {
	entries map[string][]byte
	writes  int
	lock    sync.RWMutex

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		entries: make(map[string][]byte),
	}
}

func (fs *FakeStorage) Load(_ context.Context, key string) ([]byte, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	data, ok := fs.entries[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (fs *FakeStorage) Save(_ context.Context, key string, data []byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.SaveErr != nil {
		return fs.SaveErr
	}
	fs.entries[key] = append([]byte(nil), data...)
	fs.writes++
	return nil
}

func (fs *FakeStorage) Delete(_ context.Context, key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.entries, key)
	return nil
}

func (fs *FakeStorage) Has(key string) bool {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	_, ok := fs.entries[key]
	return ok
}

func (fs *FakeStorage) Writes() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.writes
}

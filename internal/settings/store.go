package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// StorageKey is the key the settings record is persisted under.
const StorageKey = "settings"

// ErrNotFound is returned by Load when no settings have been persisted yet.
var ErrNotFound = errors.New("settings not found")

// StorageError reports a failed persistence operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store persists the single settings record.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Close() error
}

// LoadOrDefaults loads settings, falling back to Defaults when nothing is stored or the load fails.
// The load error, if any, is returned alongside the defaults so callers can log it.
func LoadOrDefaults(ctx context.Context, store Store) (Settings, error) {
	s, err := store.Load(ctx)
	if err != nil {
		return Defaults(), err
	}
	return s.Normalize(), nil
}

// MemoryStore keeps settings in memory. It is used for tests and ephemeral sessions.
type MemoryStore struct {
	mu    sync.Mutex
	value *Settings

	// SaveErr, when set, makes every Save fail with a StorageError wrapping it.
	SaveErr error
	// LoadErr, when set, makes every Load fail with a StorageError wrapping it.
	LoadErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored settings.
func (m *MemoryStore) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, &StorageError{Op: "load", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return Settings{}, &StorageError{Op: "load", Err: m.LoadErr}
	}
	if m.value == nil {
		return Settings{}, ErrNotFound
	}
	return m.value.Clone(), nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return &StorageError{Op: "save", Err: m.SaveErr}
	}
	c := s.Clone()
	m.value = &c
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

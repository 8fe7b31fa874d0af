package credentials

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/viper"
)

// ErrKeyNotFound indicates the settings key has never been stored.
var ErrKeyNotFound = errors.New("settings key not found")

// ErrReadOnly is returned by stores that cannot persist settings.
var ErrReadOnly = errors.New("settings store is read-only")

// Store reads persisted settings values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Writer is a Store the settings collaborator can update.
type Writer interface {
	Store

	// Set stores all values atomically.
	Set(ctx context.Context, values map[string]string) error

	// Clear removes every settings key.
	Clear(ctx context.Context) error
}

// MemoryStore keeps settings in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a store pre-populated with values (may be nil).
func NewMemoryStore(values map[string]string) *MemoryStore {
	m := &MemoryStore{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

// Set implements Writer.
func (m *MemoryStore) Set(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// Clear implements Writer.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = make(map[string]string)
	return nil
}

// EnvStore reads settings through viper, typically from WOO_* environment
// variables or a config file. It never writes anything to disk.
type EnvStore struct {
	v *viper.Viper
}

// NewEnvStore wraps v. A nil v gets a fresh viper bound to WOO_* variables.
func NewEnvStore(v *viper.Viper) *EnvStore {
	if v == nil {
		v = viper.New()
		v.SetEnvPrefix("WOO")
		v.AutomaticEnv()
	}
	for _, key := range Keys {
		// Registers the key so AutomaticEnv resolves it on Get.
		_ = v.BindEnv(key)
	}
	return &EnvStore{v: v}
}

// Get implements Store.
func (e *EnvStore) Get(ctx context.Context, key string) (string, error) {
	value := e.v.GetString(key)
	if value == "" {
		return "", ErrKeyNotFound
	}
	return value, nil
}

// Set implements Writer. Environment settings are owned by the shell.
func (e *EnvStore) Set(ctx context.Context, values map[string]string) error {
	return ErrReadOnly
}

// Clear implements Writer.
func (e *EnvStore) Clear(ctx context.Context) error {
	return ErrReadOnly
}

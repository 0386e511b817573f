// Package settings stores module settings keyed by (namespace, key).
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Namespace is the settings namespace owned by the trap module.
const Namespace = "trap-macros"

const (
	KeySavedTraps              = "savedTraps"
	KeyAutoRevealTraps         = "autoRevealTraps"
	KeyEnableProximityTriggers = "enableProximityTriggers"
	KeyProximityDistance       = "proximityDistance"
	KeyEffectsLibrary          = "effectsLibrary"
)

// ErrNotFound indicates the key has no stored value.
var ErrNotFound = errors.New("setting not found")

// Store reads and writes string setting values.
type Store interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

// Get returns the stored value or ErrNotFound.
func (m *Memory) Get(ctx context.Context, namespace, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[memoryKey(namespace, key)]
	if !ok {
		return "", fmt.Errorf("%s.%s: %w", namespace, key, ErrNotFound)
	}
	return value, nil
}

// Set stores value.
func (m *Memory) Set(ctx context.Context, namespace, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[memoryKey(namespace, key)] = value
	return nil
}

func memoryKey(namespace, key string) string {
	return namespace + "\x00" + key
}

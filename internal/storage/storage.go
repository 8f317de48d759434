// Package storage provides the namespaced key-value store that holds all
// storefront state outside the remote catalog.
//
// Values are JSON documents. Reads never fail on content: a missing or malformed value
// decodes to the zero value of the requested type, and only backend I/O
// failures are reported as errors. Every write publishes a Change so that
// other clients of the same namespace can re-read the affected key.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// SharedNamespace holds data visible to every profile: the product overlay
// and the registered-user list.
const SharedNamespace = "storefront"

// ProfileNamespace returns the namespace holding one client profile's state.
func ProfileNamespace(profile string) string {
	return "profile:" + profile
}

// Backend is the raw byte store underneath Store.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the stored value and whether it exists.
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, namespace, key string) error
	Close() error
}

// Store wraps a Backend with JSON encoding and change notification.
type Store struct {
	backend  Backend
	notifier *Notifier
	logger   *slog.Logger
}

// New creates a Store over backend.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend:  backend,
		notifier: NewNotifier(logger),
		logger:   logger,
	}
}

// Subscribe registers for changes within namespace. Callers must Close the
// subscription when done.
func (s *Store) Subscribe(namespace string) *Subscription {
	return s.notifier.Subscribe(namespace)
}

// Save encodes v as JSON, persists it, and publishes a Change naming origin.
func (s *Store) Save(ctx context.Context, namespace, key, origin string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, key, err)
	}
	if err := s.backend.Put(ctx, namespace, key, data); err != nil {
		return fmt.Errorf("put %s/%s: %w", namespace, key, err)
	}
	s.notifier.Publish(Change{Namespace: namespace, Key: key, Origin: origin, At: time.Now()})
	return nil
}

// Remove deletes key and publishes a Change naming origin.
func (s *Store) Remove(ctx context.Context, namespace, key, origin string) error {
	if err := s.backend.Delete(ctx, namespace, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	s.notifier.Publish(Change{Namespace: namespace, Key: key, Origin: origin, At: time.Now()})
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Load reads key and decodes it into a T.
// Missing and malformed values both yield the zero T; malformed ones are
// logged at debug level and otherwise ignored.
func Load[T any](ctx context.Context, s *Store, namespace, key string) (T, error) {
	var out T
	data, ok, err := s.backend.Get(ctx, namespace, key)
	if err != nil {
		return out, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	if !ok || len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Debug("discarding malformed stored value",
			"namespace", namespace,
			"key", key,
			"error", err,
		)
		var zero T
		return zero, nil
	}
	return out, nil
}

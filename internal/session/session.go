// Package session stages validated batches between the validate and insert
// phases. A session is readable for a fixed lifetime after creation and is
// meant to be consumed once.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetload/internal/schema"
)

// DefaultTTL is the lifetime of a validation session.
const DefaultTTL = 30 * time.Minute

var (
	// ErrNotFound is returned for unknown or already consumed sessions.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session is read after its lifetime.
	// The session is deleted by the read that reports it.
	ErrExpired = errors.New("session expired")
)

// Session is a validated batch waiting to be inserted.
type Session struct {
	ID        string          `json:"id"`
	Table     string          `json:"table"`
	Columns   []schema.Column `json:"columns"`
	Rows      []schema.Row    `json:"rows"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Backend persists sessions by id. Implementations must be safe for
// concurrent use. Load returns ErrNotFound for unknown ids.
type Backend interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// Sweep removes sessions created before cutoff and returns how many
	// were removed. Backends with native expiry may return 0.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Store applies the session lifetime on top of a Backend.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewStore returns a store with the given lifetime; ttl <= 0 uses DefaultTTL.
func NewStore(backend Backend, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{backend: backend, ttl: ttl, now: time.Now}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put assigns a fresh id and creation time to sess, persists it and
// returns the id.
func (s *Store) Put(ctx context.Context, sess *Session) (string, error) {
	sess.ID = uuid.NewString()
	sess.CreatedAt = s.now().UTC()

	if err := s.backend.Save(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return sess.ID, nil
}

// Get returns the session if it exists and is within its lifetime. An
// expired session is deleted and ErrExpired is returned.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.backend.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.now().Sub(sess.CreatedAt) > s.ttl {
		if err := s.backend.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, ErrExpired
	}

	return sess, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.backend.Delete(ctx, id)
}

// Sweep removes sessions that outlived twice their lifetime. Sessions
// between one and two lifetimes old are left so that a late read still
// reports ErrExpired instead of ErrNotFound.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	return s.backend.Sweep(ctx, s.now().Add(-2*s.ttl))
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Package session tracks who is logged in. A session is created on a
// successful login, resolved on every authenticated request and removed
// on logout; an absent session means logged out.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Session struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager issues signed tokens and keeps the matching session in a Store
// so that logout takes effect before the token expires.
type Manager struct {
	tokens *tokenSigner
	store  Store
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration, store Store) *Manager {
	return &Manager{
		tokens: newTokenSigner(secret),
		store:  store,
		ttl:    ttl,
	}
}

// Login starts a session for identity and returns it with its token.
func (m *Manager) Login(ctx context.Context, identity string, role Role) (Session, string, error) {
	s := Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		Role:      role,
		ExpiresAt: time.Now().Add(m.ttl).Truncate(time.Second),
	}

	token, err := m.tokens.sign(s)
	if err != nil {
		return Session{}, "", err
	}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return Session{}, "", fmt.Errorf("save session: %w", err)
	}
	return s, token, nil
}

// Resolve returns the live session behind token.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	c, err := m.tokens.parse(token)
	if err != nil {
		return Session{}, err
	}

	s, err := m.store.Get(ctx, c.ID)
	if err != nil {
		return Session{}, err
	}
	if s.Identity != c.Subject || s.Role != c.Role {
		return Session{}, ErrInvalidToken
	}
	return s, nil
}

// Logout ends the session behind token. Ending an unknown session is not
// an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	c, err := m.tokens.parse(token)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, c.ID)
}

type contextKey struct{}

func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

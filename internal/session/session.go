// Package session holds the logged-in identity that every fetch is issued
// on behalf of.
package session

import (
	"errors"
	"sync"

	"expenseview/internal/core"
)

// NoIdentityMessage is shown to the user when an operation needs a
// logged-in person and there is none.
const NoIdentityMessage = "Logged-in person details not available."

// ErrNoIdentity is returned before any fetch when no person is logged in.
var ErrNoIdentity = errors.New("logged-in person details not available")

// ErrInvalidPerson is returned when saving a person without an ID.
var ErrInvalidPerson = errors.New("person id is required")

// Gate exposes the current identity. Implementations must answer
// synchronously.
type Gate interface {
	CurrentPerson() (core.Person, bool)
}

// Require checks the gate and returns ErrNoIdentity when nobody is logged
// in. Callers run it before starting any asynchronous work.
func Require(g Gate) (core.Person, error) {
	if g == nil {
		return core.Person{}, ErrNoIdentity
	}
	p, ok := g.CurrentPerson()
	if !ok || p.IsZero() {
		return core.Person{}, ErrNoIdentity
	}
	return p, nil
}

// Store is an in-memory Gate holding one person.
type Store struct {
	mu     sync.RWMutex
	person core.Person
	set    bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Save replaces the logged-in person.
func (s *Store) Save(p core.Person) error {
	if p.IsZero() {
		return ErrInvalidPerson
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.person = p
	s.set = true
	return nil
}

// Clear logs the current person off.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.person = core.Person{}
	s.set = false
}

// CurrentPerson implements Gate.
func (s *Store) CurrentPerson() (core.Person, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.person, s.set
}

// Token returns the bearer token of the current person, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.person.Token
}

// IsAdmin reports whether the current person has the admin role.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set && s.person.IsAdmin()
}

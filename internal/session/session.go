// Package session provides server-side sessions keyed by a cookie.
package session

import (
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/domain"
)

// Session is the request's view of a server-side session. Commands reach
// it through From and the dispatcher persists it once the command returns.
type Session struct {
	mu          sync.RWMutex
	record      *domain.Session
	isNew       bool
	dirty       bool
	invalidated bool
	// replaced is the stored ID a Rotate call retired.
	replaced string
}

func newSession(record *domain.Session, isNew bool) *Session {
	if record.Attributes == nil {
		record.Attributes = make(map[string]any)
	}
	return &Session{record: record, isNew: isNew}
}

// From returns the session stored in ctx under command.KeySession.
func From(ctx *command.Context) (*Session, bool) {
	s, ok := command.Find[*Session](ctx, command.KeySession)
	return s, ok && s != nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.ID
}

// IsNew reports whether the session was created for this request.
func (s *Session) IsNew() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isNew
}

// UserID returns the user the session is bound to, if any.
func (s *Session) UserID() domain.UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.UserID
}

// SetUserID binds the session to a user.
func (s *Session) SetUserID(id domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.UserID = id
	s.dirty = true
}

// ExpiresAt returns the session expiry.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.ExpiresAt
}

// Get returns the attribute stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.record.Attributes[key]
	return v, ok
}

// Lookup implements command.Source so the session can serve as a context
// fallback.
func (s *Session) Lookup(key string) (any, bool) {
	return s.Get(key)
}

// Set stores an attribute. A nil value removes it.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.record.Attributes, key)
	} else {
		s.record.Attributes[key] = value
	}
	s.dirty = true
}

// Delete removes an attribute.
func (s *Session) Delete(key string) {
	s.Set(key, nil)
}

// Attributes returns a copy of all attributes.
func (s *Session) Attributes() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.record.Attributes)
}

// Invalidate discards the session. It is removed from the store and the
// client cookie is cleared when the request completes.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = true
}

// Rotate moves the session to a fresh ID, keeping its attributes. The old
// ID is deleted from the store when the request completes. Call it when
// the session changes privilege, such as on login.
func (s *Session) Rotate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isNew && s.replaced == "" {
		s.replaced = s.record.ID
	}
	s.record.ID = uuid.New().String()
	s.dirty = true
}

// Invalidated reports whether Invalidate was called.
func (s *Session) Invalidated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invalidated
}

func (s *Session) snapshot() (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record := *s.record
	record.Attributes = maps.Clone(s.record.Attributes)
	return &record, s.dirty
}

func (s *Session) extend(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.ExpiresAt = expiresAt
}

func (s *Session) retired() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replaced
}

func (s *Session) markClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
	s.isNew = false
	s.replaced = ""
}

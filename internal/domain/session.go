package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is a persisted server-side session record.
type Session struct {
	ID         string         `json:"id" bson:"_id"`
	UserID     UserID         `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty" bson:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at" bson:"expires_at"`
}

// NewSession creates an empty session that expires after ttl.
func NewSession(ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New().String(),
		Attributes: make(map[string]any),
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

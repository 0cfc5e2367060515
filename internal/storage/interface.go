package storage

import (
	"context"
	"errors"

	"github.com/sirosfoundation/go-xsf/internal/domain"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDatabase      = errors.New("database error")
)

// UserStore defines the interface for user storage operations
type UserStore interface {
	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by e-mail address
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetAll retrieves all users ordered by username
	GetAll(ctx context.Context) ([]*domain.User, error)

	// Update updates a user
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id domain.UserID) error
}

// PersonStore defines the interface for the people resource
type PersonStore interface {
	// Create creates a new person; an empty ID is assigned by the caller
	Create(ctx context.Context, person *domain.Person) error

	// GetByID retrieves a person by ID
	GetByID(ctx context.Context, id string) (*domain.Person, error)

	// GetAll retrieves all people in insertion order
	GetAll(ctx context.Context) ([]*domain.Person, error)

	// Update replaces the descriptive fields of an existing person
	Update(ctx context.Context, person *domain.Person) error

	// Delete deletes a person
	Delete(ctx context.Context, id string) error
}

// SessionStore defines the interface for server-side session records
type SessionStore interface {
	// Save creates or replaces a session
	Save(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by ID; expired sessions are reported as ErrNotFound
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// Delete deletes a session
	Delete(ctx context.Context, id string) error

	// DeleteExpired deletes all expired sessions and reports how many were removed
	DeleteExpired(ctx context.Context) (int64, error)
}

// Store aggregates all storage interfaces
type Store interface {
	Users() UserStore
	People() PersonStore
	Sessions() SessionStore

	// Close closes the storage connection
	Close() error

	// Ping checks if the storage is alive
	Ping(ctx context.Context) error
}

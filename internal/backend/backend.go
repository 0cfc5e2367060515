package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/storage"
	"github.com/sirosfoundation/go-xsf/internal/storage/memory"
	"github.com/sirosfoundation/go-xsf/internal/storage/mongodb"
	"github.com/sirosfoundation/go-xsf/internal/storage/redisstore"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

// Type defines the type of storage backend
type Type string

const (
	// TypeMemory uses in-memory storage (for testing/development)
	TypeMemory Type = "memory"
	// TypeMongoDB uses MongoDB storage (for production)
	TypeMongoDB Type = "mongodb"
)

// Backend is the storage handed to commands and decorators. It is a
// storage.Store whose lifecycle is owned by the process entry point.
type Backend interface {
	storage.Store
}

// New creates a storage backend based on the configuration
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	var b Backend

	switch storageType := Type(cfg.Storage.Type); storageType {
	case TypeMemory, "":
		b = memory.NewStore()

	case TypeMongoDB:
		store, err := mongodb.NewStore(ctx, &cfg.Storage.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB backend: %w", err)
		}
		b = store

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}

	if cfg.Storage.Redis.Address != "" {
		sessions, err := redisstore.NewSessionStore(ctx, &cfg.Storage.Redis, nil)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to create Redis session store: %w", err)
		}
		b = WithSessions(b, sessions)
	}

	if cfg.Storage.SeedPeople {
		if err := SeedPeople(ctx, b.People(), domain.DefaultPeople()); err != nil {
			_ = b.Close()
			return nil, err
		}
	}

	return b, nil
}

// SeedPeople inserts the given records when the store is empty. Records that
// already exist are left untouched.
func SeedPeople(ctx context.Context, people storage.PersonStore, seed []*domain.Person) error {
	existing, err := people.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, p := range seed {
		if err := people.Create(ctx, p); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("failed to seed person %s: %w", p.ID, err)
		}
	}
	return nil
}

// SessionBackend is a session store with its own connection.
type SessionBackend interface {
	storage.SessionStore
	Ping(ctx context.Context) error
	Close() error
}

// WithSessions returns b with its session store replaced by sessions.
// Ping and Close cover both connections.
func WithSessions(b Backend, sessions SessionBackend) Backend {
	return &splitBackend{Backend: b, sessions: sessions}
}

type splitBackend struct {
	Backend
	sessions SessionBackend
}

func (s *splitBackend) Sessions() storage.SessionStore { return s.sessions }

func (s *splitBackend) Ping(ctx context.Context) error {
	if err := s.Backend.Ping(ctx); err != nil {
		return err
	}
	return s.sessions.Ping(ctx)
}

func (s *splitBackend) Close() error {
	return errors.Join(s.sessions.Close(), s.Backend.Close())
}

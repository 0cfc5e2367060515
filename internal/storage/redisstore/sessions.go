// Package redisstore keeps server-side sessions in Redis so several
// dispatcher instances can share them. Expiry is delegated to Redis key TTLs.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/storage"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "xsf:session:"

// SessionStore implements storage.SessionStore on Redis
type SessionStore struct {
	client    goredis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
}

// NewSessionStore connects to Redis and verifies the connection.
func NewSessionStore(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*SessionStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewSessionStoreWithClient(client, cfg.KeyPrefix, logger), nil
}

// NewSessionStoreWithClient wraps an existing client.
func NewSessionStoreWithClient(client goredis.UniversalClient, keyPrefix string, logger *zap.Logger) *SessionStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.Named("redis-sessions"),
	}
}

func (s *SessionStore) sessionKey(id string) string {
	return s.keyPrefix + id
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		return storage.ErrInvalidInput
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.sessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	// Keys can outlive ExpiresAt by the TTL rounding of the server
	if session.Expired(time.Now()) {
		return nil, storage.ErrNotFound
	}
	if session.Attributes == nil {
		session.Attributes = make(map[string]any)
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts sessions when their TTL runs out.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.logger.Debug("Redis cleanup - TTL handles session expiration")
	return 0, nil
}

// Ping checks the connection.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/storage"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

// Manager loads the session named by the request cookie and persists it
// after the request. New sessions are only stored once something is
// written to them.
type Manager struct {
	store  storage.SessionStore
	cookie string
	ttl    time.Duration
	secure bool
	path   string
	logger *zap.Logger
}

// NewManager creates a session manager. path scopes the cookie, usually
// the dispatcher prefix.
func NewManager(store storage.SessionStore, cfg config.SessionConfig, path string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL()
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cookie := cfg.CookieName
	if cookie == "" {
		cookie = "XSFSESSIONID"
	}
	if path == "" {
		path = "/"
	}
	return &Manager{
		store:  store,
		cookie: cookie,
		ttl:    ttl,
		secure: cfg.SecureCookie,
		path:   path,
		logger: logger.Named("session"),
	}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.cookie }

// Load returns the request's session, creating an unsaved one when the
// cookie is absent, unknown or expired.
func (m *Manager) Load(c *gin.Context) *Session {
	id, err := c.Cookie(m.cookie)
	if err == nil && id != "" {
		record, err := m.store.GetByID(c.Request.Context(), id)
		switch {
		case err == nil:
			return newSession(record, false)
		case !errors.Is(err, storage.ErrNotFound):
			m.logger.Warn("Failed to load session", zap.Error(err))
		}
	}
	return newSession(domain.NewSession(m.ttl), true)
}

// Save persists changes made during the request and maintains the cookie.
// An invalidated session is deleted and its cookie cleared. A rotated
// session is stored under its new ID and the old one deleted. Expiry
// slides: a stored session is refreshed when written, or when less than
// half of its lifetime remains.
func (m *Manager) Save(c *gin.Context, s *Session) error {
	if s == nil {
		return nil
	}
	ctx := c.Request.Context()

	if s.Invalidated() {
		ids := []string{s.retired()}
		if !s.IsNew() {
			ids = append(ids, s.ID())
		}
		for _, id := range ids {
			if id == "" {
				continue
			}
			if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(m.cookie, "", -1, m.path, "", m.secure, true)
		return nil
	}

	record, dirty := s.snapshot()
	if !dirty && (s.IsNew() || time.Until(record.ExpiresAt) > m.ttl/2) {
		return nil
	}
	record.ExpiresAt = time.Now().Add(m.ttl)
	if err := m.store.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if old := s.retired(); old != "" {
		if err := m.store.Delete(ctx, old); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete rotated session: %w", err)
		}
	}
	s.extend(record.ExpiresAt)
	s.markClean()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookie, record.ID, int(m.ttl.Seconds()), m.path, "", m.secure, true)
	return nil
}

// Destroy removes a session by ID outside of a request.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/session"
	"github.com/sirosfoundation/go-xsf/internal/storage"
	"github.com/sirosfoundation/go-xsf/pkg/middleware"
)

// Credentials verifies a login and password.
type Credentials interface {
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)
}

// The decorators below establish a principal before authorization runs.
// Each one leaves the context untouched when a principal is already present
// or when the request carries no credentials it understands.

// BasicDecorator authenticates HTTP Basic credentials.
type BasicDecorator struct {
	credentials Credentials
	logger      *zap.Logger
}

// NewBasicDecorator creates a Basic-auth decorator.
func NewBasicDecorator(credentials Credentials, logger *zap.Logger) *BasicDecorator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BasicDecorator{credentials: credentials, logger: logger.Named("basic-auth")}
}

// Decorate implements the dispatcher's decorator contract.
func (d *BasicDecorator) Decorate(ctx *command.Context) *command.Context {
	if _, ok := PrincipalFrom(ctx); ok {
		return ctx
	}
	req, ok := command.Find[*http.Request](ctx, command.KeyRequest)
	if !ok {
		return ctx
	}
	login, password, ok := req.BasicAuth()
	if !ok {
		return ctx
	}

	user, err := d.credentials.Authenticate(ctx, login, password)
	if err != nil {
		d.logger.Debug("Basic authentication failed", zap.String("login", login), zap.Error(err))
		return ctx
	}

	SetPrincipal(ctx, FromUser(user))
	return ctx
}

// BearerDecorator authenticates JWT bearer tokens.
type BearerDecorator struct {
	tokens *Tokens
	logger *zap.Logger
}

// NewBearerDecorator creates a bearer-token decorator.
func NewBearerDecorator(tokens *Tokens, logger *zap.Logger) *BearerDecorator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BearerDecorator{tokens: tokens, logger: logger.Named("bearer-auth")}
}

// Decorate implements the dispatcher's decorator contract.
func (d *BearerDecorator) Decorate(ctx *command.Context) *command.Context {
	if _, ok := PrincipalFrom(ctx); ok {
		return ctx
	}
	req, ok := command.Find[*http.Request](ctx, command.KeyRequest)
	if !ok {
		return ctx
	}
	token, ok := middleware.BearerToken(req.Header.Get("Authorization"))
	if !ok {
		return ctx
	}

	claims, err := d.tokens.Parse(ctx, token)
	if err != nil {
		d.logger.Debug("Bearer token rejected", zap.Error(err))
		return ctx
	}

	SetPrincipal(ctx, claims.Principal())
	ctx.Put(KeyToken, token)
	return ctx
}

// RemoteUserDecorator trusts a header set by a fronting proxy and loads
// the named user's roles when the user is known locally.
type RemoteUserDecorator struct {
	header string
	users  storage.UserStore
	logger *zap.Logger
}

// NewRemoteUserDecorator creates a remote-user decorator. users may be nil.
func NewRemoteUserDecorator(header string, users storage.UserStore, logger *zap.Logger) *RemoteUserDecorator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteUserDecorator{header: header, users: users, logger: logger.Named("remote-user")}
}

// Decorate implements the dispatcher's decorator contract.
func (d *RemoteUserDecorator) Decorate(ctx *command.Context) *command.Context {
	if _, ok := PrincipalFrom(ctx); ok {
		return ctx
	}
	req, ok := command.Find[*http.Request](ctx, command.KeyRequest)
	if !ok {
		return ctx
	}
	name := req.Header.Get(d.header)
	if name == "" {
		return ctx
	}

	if d.users != nil {
		user, err := d.users.GetByUsername(ctx, name)
		switch {
		case err == nil:
			SetPrincipal(ctx, FromUser(user))
			return ctx
		case !errors.Is(err, storage.ErrNotFound):
			d.logger.Warn("Remote user lookup failed", zap.String("user", name), zap.Error(err))
		}
	}

	SetPrincipal(ctx, &Principal{Subject: name, Name: name})
	return ctx
}

// SessionDecorator restores the principal of a user who logged in earlier
// in the same session.
type SessionDecorator struct {
	users  storage.UserStore
	logger *zap.Logger
}

// NewSessionDecorator creates a session decorator.
func NewSessionDecorator(users storage.UserStore, logger *zap.Logger) *SessionDecorator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionDecorator{users: users, logger: logger.Named("session-auth")}
}

// Decorate implements the dispatcher's decorator contract.
func (d *SessionDecorator) Decorate(ctx *command.Context) *command.Context {
	if _, ok := PrincipalFrom(ctx); ok {
		return ctx
	}
	s, ok := session.From(ctx)
	if !ok || s.UserID() == "" {
		return ctx
	}

	user, err := d.users.GetByID(ctx, s.UserID())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.SetUserID("")
		} else {
			d.logger.Warn("Session user lookup failed", zap.Error(err))
		}
		return ctx
	}

	SetPrincipal(ctx, FromUser(user))
	return ctx
}

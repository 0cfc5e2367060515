package samples

import (
	"errors"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/auth"
	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/internal/service"
	"github.com/sirosfoundation/go-xsf/internal/session"
)

// Login verifies credentials, moves the session to a fresh ID bound to the
// user and, when token signing is configured, issues a bearer token.
type Login struct {
	credentials auth.Credentials
	tokens      *auth.Tokens
	logger      *zap.Logger
}

// NewLogin creates the login command. tokens may be nil.
func NewLogin(credentials auth.Credentials, tokens *auth.Tokens, logger *zap.Logger) *Login {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Login{credentials: credentials, tokens: tokens, logger: logger.Named("login")}
}

func (*Login) Declaration() route.Declaration {
	return route.Post("/session/login").Public().Bind("credentials", domain.LoginRequest{})
}

func (l *Login) Execute(ctx *command.Context) (*command.Result, error) {
	req, ok := command.Find[*domain.LoginRequest](ctx, "credentials")
	if !ok {
		return command.Failure("Login and password are required"), nil
	}

	user, err := l.credentials.Authenticate(ctx, req.Login, req.Password)
	switch {
	case errors.Is(err, service.ErrRateLimited):
		return command.Failure("Too many failed login attempts, try again later"), nil
	case err != nil:
		l.logger.Debug("Login failed", zap.String("login", req.Login), zap.Error(err))
		return command.Failure("Invalid login or password"), nil
	}

	principal := auth.FromUser(user)
	auth.SetPrincipal(ctx, principal)

	resp := &domain.LoginResponse{
		UserID:      user.ID.String(),
		DisplayName: user.DisplayName,
	}
	if s, ok := session.From(ctx); ok {
		s.Rotate()
		s.SetUserID(user.ID)
		resp.SessionID = s.ID()
	}
	if l.tokens.Enabled() {
		token, err := l.tokens.Issue(principal)
		if err != nil {
			return nil, err
		}
		resp.Token = token
	}
	return command.Success(resp), nil
}

// Logout ends the session and revokes the bearer token the request was
// authenticated with.
type Logout struct {
	tokens *auth.Tokens
}

// NewLogout creates the logout command. tokens may be nil.
func NewLogout(tokens *auth.Tokens) *Logout {
	return &Logout{tokens: tokens}
}

func (*Logout) Declaration() route.Declaration {
	return route.Post("/session/logout").Public()
}

func (l *Logout) Execute(ctx *command.Context) (*command.Result, error) {
	if s, ok := session.From(ctx); ok {
		s.Invalidate()
	}
	token, _ := ctx.Local(auth.KeyToken)
	if token, ok := token.(string); ok && token != "" && l.tokens.Enabled() {
		if err := l.tokens.Revoke(ctx, token); err != nil && !errors.Is(err, auth.ErrRevokedToken) {
			return nil, err
		}
	}
	ctx.Put(command.KeyPrincipal, nil)
	return command.Success(nil), nil
}

// WhoAmI returns the caller's principal.
type WhoAmI struct{}

func (WhoAmI) Declaration() route.Declaration {
	return route.Get("/session/whoami")
}

func (WhoAmI) Execute(ctx *command.Context) (*command.Result, error) {
	p, ok := auth.PrincipalFrom(ctx)
	if !ok {
		return command.Failure("Not authenticated"), nil
	}
	return command.Success(p), nil
}

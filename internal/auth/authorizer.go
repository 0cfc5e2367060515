// Package auth decides whether a matched route may run for the current
// request and establishes the request's principal from credentials.
package auth

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

// Authorizer is consulted once per request after the route and command
// have been resolved and before any input is read.
type Authorizer interface {
	Authorize(r *route.Route, cmd command.Command, ctx *command.Context) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(r *route.Route, cmd command.Command, ctx *command.Context) bool

// Authorize calls f.
func (f AuthorizerFunc) Authorize(r *route.Route, cmd command.Command, ctx *command.Context) bool {
	return f(r, cmd, ctx)
}

// PrincipalSource answers whether the request carries an authenticated caller.
type PrincipalSource interface {
	Present(ctx *command.Context) bool
}

// PrincipalSourceFunc adapts a function to the PrincipalSource interface.
type PrincipalSourceFunc func(ctx *command.Context) bool

// Present calls f.
func (f PrincipalSourceFunc) Present(ctx *command.Context) bool { return f(ctx) }

// ContextPrincipal reports a principal when one was stored under
// command.KeyPrincipal, typically by a decorator.
func ContextPrincipal() PrincipalSource {
	return PrincipalSourceFunc(func(ctx *command.Context) bool {
		_, ok := PrincipalFrom(ctx)
		return ok
	})
}

// RemoteUser reports a principal when a fronting proxy set the named
// request header, or when a principal is already in the context.
func RemoteUser(header string) PrincipalSource {
	return PrincipalSourceFunc(func(ctx *command.Context) bool {
		if _, ok := PrincipalFrom(ctx); ok {
			return true
		}
		req, ok := command.Find[*http.Request](ctx, command.KeyRequest)
		return ok && req.Header.Get(header) != ""
	})
}

// Default grants public routes unconditionally. Protected routes need a
// principal and a passing rule; after that a self-authorizing command has
// the final word.
type Default struct {
	source PrincipalSource
	rules  *Rules
	logger *zap.Logger
}

// NewDefault creates the default authorizer. A nil source checks the
// context principal.
func NewDefault(source PrincipalSource, logger *zap.Logger) *Default {
	if source == nil {
		source = ContextPrincipal()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Default{source: source, rules: NewRules(), logger: logger.Named("authorizer")}
}

// Rules returns the rule cache, for validating a table at startup.
func (d *Default) Rules() *Rules { return d.rules }

// Authorize implements Authorizer.
func (d *Default) Authorize(r *route.Route, cmd command.Command, ctx *command.Context) bool {
	if r == nil {
		return false
	}
	if !r.Authenticated {
		return true
	}
	if !d.source.Present(ctx) {
		d.logger.Debug("No principal for protected route", zap.String("uri", r.URI))
		return false
	}
	if r.Rule != "" {
		allowed, err := d.rules.Evaluate(r.Rule, ruleEnv(r, ctx))
		if err != nil {
			d.logger.Debug("Authorization rule failed",
				zap.String("uri", r.URI), zap.String("rule", r.Rule), zap.Error(err))
			return false
		}
		if !allowed {
			return false
		}
	}
	if a, ok := cmd.(command.Authorized); ok {
		return a.Authorize(ctx)
	}
	return true
}

// Null allows every request.
type Null struct{}

// Authorize implements Authorizer.
func (Null) Authorize(*route.Route, command.Command, *command.Context) bool { return true }

// New selects the authorizer named in the configuration.
func New(cfg config.AuthConfig, logger *zap.Logger) Authorizer {
	switch cfg.Authorizer {
	case config.AuthorizerNone:
		return Null{}
	case config.AuthorizerRemoteUser:
		return NewDefault(RemoteUser(cfg.RemoteUserHeader), logger)
	default:
		return NewDefault(ContextPrincipal(), logger)
	}
}

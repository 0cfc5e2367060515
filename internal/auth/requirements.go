package auth

import "github.com/sirosfoundation/go-xsf/internal/command"

// The requirement types below implement command.Authorized and are meant
// to be embedded in commands that restrict who may run them.

// RequireAdmin admits administrators only.
type RequireAdmin struct{}

// Authorize implements command.Authorized.
func (RequireAdmin) Authorize(ctx *command.Context) bool {
	p, ok := PrincipalFrom(ctx)
	return ok && p.Admin
}

// RequireRoles admits principals holding any one of Roles. AllowAdmin lets
// administrators through regardless of roles.
type RequireRoles struct {
	Roles      []string
	AllowAdmin bool
}

// Authorize implements command.Authorized.
func (r RequireRoles) Authorize(ctx *command.Context) bool {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return false
	}
	if r.AllowAdmin && p.Admin {
		return true
	}
	for _, role := range r.Roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// RequireOrg admits principals that belong to one of Orgs. With no Orgs
// configured, membership in any organization is enough.
type RequireOrg struct {
	Orgs []string
}

// Authorize implements command.Authorized.
func (r RequireOrg) Authorize(ctx *command.Context) bool {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return false
	}
	if len(r.Orgs) == 0 {
		return len(p.Orgs) > 0
	}
	for _, org := range r.Orgs {
		if p.InOrg(org) {
			return true
		}
	}
	return false
}

package auth

import (
	"slices"
	"strings"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/domain"
)

// KeyToken holds the raw bearer token a principal was established from.
const KeyToken = "_token_"

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string   `json:"sub"`
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Orgs    []string `json:"orgs,omitempty"`
	Admin   bool     `json:"admin,omitempty"`
}

// FromUser builds the principal for a stored user.
func FromUser(u *domain.User) *Principal {
	return &Principal{
		Subject: u.ID.String(),
		Name:    u.Username,
		Email:   u.Email,
		Roles:   slices.Clone(u.Roles),
		Orgs:    slices.Clone(u.Orgs),
		Admin:   u.Admin,
	}
}

// HasRole reports whether the principal carries the role (case-insensitive).
func (p *Principal) HasRole(role string) bool {
	return slices.ContainsFunc(p.Roles, func(r string) bool {
		return strings.EqualFold(r, role)
	})
}

// InOrg reports whether the principal belongs to the organization.
func (p *Principal) InOrg(org string) bool {
	return slices.Contains(p.Orgs, org)
}

// PrincipalFrom returns the principal established for the request, if any.
func PrincipalFrom(ctx *command.Context) (*Principal, bool) {
	p, ok := command.Find[*Principal](ctx, command.KeyPrincipal)
	return p, ok && p != nil
}

// SetPrincipal records p as the request's principal.
func SetPrincipal(ctx *command.Context, p *Principal) {
	ctx.Put(command.KeyPrincipal, p)
}

package samples

import (
	"github.com/sirosfoundation/go-xsf/internal/auth"
	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
)

func echo(ctx *command.Context, name string) *command.Result {
	return command.Success(map[string]string{
		"first_name":   ctx.String("first"),
		"last_name":    ctx.String("last"),
		"command_name": name,
	})
}

// Omniadmin may only be run by administrators.
type Omniadmin struct {
	auth.RequireAdmin
}

func (Omniadmin) Declaration() route.Declaration {
	return route.Get("/needsomniadmin/echo/{last}/{first}").Protected()
}

func (Omniadmin) Execute(ctx *command.Context) (*command.Result, error) {
	return echo(ctx, "OmniadminCommand"), nil
}

// RoleRequired needs one of a set of roles. Administrators are let
// through regardless.
type RoleRequired struct {
	auth.RequireRoles
}

// NewRoleRequired creates the command for the sample roles.
func NewRoleRequired() *RoleRequired {
	return &RoleRequired{auth.RequireRoles{
		Roles:      []string{"SomeRole", "PortalTestRole"},
		AllowAdmin: true,
	}}
}

func (*RoleRequired) Declaration() route.Declaration {
	return route.Get("/needsportalrole/echo/{last}/{first}").Protected()
}

func (*RoleRequired) Execute(ctx *command.Context) (*command.Result, error) {
	return echo(ctx, "RoleRequiredCommand"), nil
}

// OrgAuthorized needs membership in at least one organization.
type OrgAuthorized struct {
	auth.RequireOrg
}

func (OrgAuthorized) Declaration() route.Declaration {
	return route.Get("/needsorgrole/echo/{last}/{first}").Protected()
}

func (OrgAuthorized) Execute(ctx *command.Context) (*command.Result, error) {
	return echo(ctx, "OrgAuthorizedCommand"), nil
}

// Package samples holds a set of example commands that exercise the
// dispatcher: path and query parameters, typed input, per-method routes,
// self-authorizing commands, a CRUD resource with computed routes,
// session login and a command chain with walkback.
package samples

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/auth"
	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/internal/storage"
)

// Deps are the collaborators the sample commands need.
type Deps struct {
	People      storage.PersonStore
	Credentials auth.Credentials
	Tokens      *auth.Tokens
	Audit       *AuditLog
	Logger      *zap.Logger
}

type component struct {
	name  string
	value any
}

// Register adds every sample command to registry. Step commands of the
// audited chain are registered too but declare no route.
func Register(registry *command.Registry, deps Deps) error {
	if deps.Audit == nil {
		deps.Audit = &AuditLog{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	components := []component{
		{"helloWorld", HelloWorld{}},
		{"helloWorld2", HelloWorld2{}},
		{"helloWorld3", HelloWorld3{}},
		{"methodRoutes", MethodRoutes{}},
		{"omniadmin", Omniadmin{}},
		{"roleRequired", NewRoleRequired()},
		{"orgAuthorized", OrgAuthorized{}},
		{"whoami", WhoAmI{}},
		{"logout", NewLogout(deps.Tokens)},
		{AuditOpenName, auditOpen{log: deps.Audit}},
		{AuditReserveName, auditReserve{log: deps.Audit}},
		{AuditGreetName, auditGreet{}},
		{"auditedGreeting", NewAuditedGreeting(registry, logger)},
		{"auditTrail", AuditTrail{log: deps.Audit}},
	}
	if deps.People != nil {
		components = append(components, component{"people", NewPeople(deps.People)})
	}
	if deps.Credentials != nil {
		components = append(components, component{"login", NewLogin(deps.Credentials, deps.Tokens, logger)})
	}

	for _, c := range components {
		if err := registry.Register(c.name, c.value); err != nil {
			return fmt.Errorf("register sample %s: %w", c.name, err)
		}
	}
	return nil
}

// RegisterTypes makes the sample input types available to routes files.
func RegisterTypes(types *route.Types) error {
	for name, prototype := range map[string]any{
		"SampleInput":  SampleInput{},
		"Rate":         Rate{},
		"Person":       domain.Person{},
		"LoginRequest": domain.LoginRequest{},
	} {
		if err := types.Register(name, prototype); err != nil {
			return err
		}
	}
	return nil
}

package samples

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
)

// AuditLog records what the audited chain did, including walkbacks.
type AuditLog struct {
	mu      sync.Mutex
	entries []string
}

// Record appends an entry.
func (a *AuditLog) Record(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the log.
func (a *AuditLog) Entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.entries)
}

// Command names of the audited chain's steps.
const (
	AuditOpenName    = "audit.open"
	AuditReserveName = "audit.reserve"
	AuditGreetName   = "audit.greet"
)

// auditOpen starts the audit trail. As the first step of the chain it is
// never walked back, so its PostProcess only runs when it is dispatched on
// its own.
type auditOpen struct{ log *AuditLog }

func (s auditOpen) Execute(ctx *command.Context) (*command.Result, error) {
	s.log.Record("open %s", ctx.String("name"))
	return command.Success(nil), nil
}

func (s auditOpen) PostProcess(ctx *command.Context, _ *command.Result, _ error) error {
	s.log.Record("close %s", ctx.String("name"))
	return nil
}

// auditReserve claims a greeting slot and releases it when a later step
// does not succeed.
type auditReserve struct{ log *AuditLog }

func (s auditReserve) Execute(ctx *command.Context) (*command.Result, error) {
	s.log.Record("reserve %s", ctx.String("name"))
	ctx.Put("reserved", true)
	return command.Success(nil), nil
}

func (s auditReserve) PostProcess(ctx *command.Context, result *command.Result, cause error) error {
	switch {
	case cause != nil:
		s.log.Record("release %s: %v", ctx.String("name"), cause)
	case !result.Succeeded:
		s.log.Record("release %s: %s", ctx.String("name"), result.Message)
	default:
		s.log.Record("commit %s", ctx.String("name"))
	}
	return nil
}

// auditGreet refuses the name "nobody" and fails hard on "error".
type auditGreet struct{}

func (auditGreet) Execute(ctx *command.Context) (*command.Result, error) {
	switch name := ctx.String("name"); name {
	case "nobody":
		return command.Failure("Refusing to greet nobody"), nil
	case "error":
		return nil, fmt.Errorf("greeting %s failed", name)
	default:
		return command.Success("Hello " + name), nil
	}
}

// AuditedGreeting greets through a chain of named steps that are
// resolved from the registry on first use.
type AuditedGreeting struct {
	*command.Chain
}

// NewAuditedGreeting builds the chain over the named steps in registry.
func NewAuditedGreeting(registry *command.Registry, logger *zap.Logger) *AuditedGreeting {
	chain := command.NewChain(logger).
		AddNamed(registry, AuditOpenName).
		AddNamed(registry, AuditReserveName).
		AddNamed(registry, AuditGreetName)
	return &AuditedGreeting{Chain: chain}
}

func (*AuditedGreeting) Declaration() route.Declaration {
	return route.Get("/audited/{name}").Public()
}

// AuditTrail lists the audit log.
type AuditTrail struct{ log *AuditLog }

func (AuditTrail) Declaration() route.Declaration {
	return route.Get("/audited").Public()
}

func (a AuditTrail) Execute(*command.Context) (*command.Result, error) {
	return command.Success(a.log.Entries()), nil
}

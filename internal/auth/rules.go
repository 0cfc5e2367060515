package auth

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
)

// RuleEnv is what an authorization rule can see. Rules only run on
// protected routes, where a principal is present. Principal is nil when
// the principal source is a trusted header rather than the context, so
// such deployments should guard against it:
//
//	principal != nil && principal.Admin
type RuleEnv struct {
	Principal *Principal        `expr:"principal"`
	Params    map[string]string `expr:"params"`
	Method    string            `expr:"method"`
	URI       string            `expr:"uri"`
}

// Rules compiles and caches route authorization rules.
type Rules struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewRules creates an empty rule cache.
func NewRules() *Rules {
	return &Rules{programs: make(map[string]*vm.Program)}
}

// Compile returns the program for rule, compiling it on first use.
func (r *Rules) Compile(rule string) (*vm.Program, error) {
	r.mu.RLock()
	program, ok := r.programs[rule]
	r.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(rule, expr.Env(RuleEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid authorization rule %q: %w", rule, err)
	}

	r.mu.Lock()
	r.programs[rule] = program
	r.mu.Unlock()
	return program, nil
}

// Evaluate runs rule against env. Runtime errors, such as reading a field
// of a nil principal, are returned and should be treated as a denial.
func (r *Rules) Evaluate(rule string, env RuleEnv) (bool, error) {
	program, err := r.Compile(rule)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	allowed, _ := out.(bool)
	return allowed, nil
}

// Validate compiles the rule of every route so a bad rule fails at startup
// instead of on the first request.
func (r *Rules) Validate(routes []*route.Route) error {
	for _, rt := range routes {
		if rt.Rule == "" {
			continue
		}
		if _, err := r.Compile(rt.Rule); err != nil {
			return fmt.Errorf("route %s %s: %w", rt.Method, rt.URI, err)
		}
	}
	return nil
}

func ruleEnv(r *route.Route, ctx *command.Context) RuleEnv {
	env := RuleEnv{Method: r.Method, URI: r.URI}
	if p, ok := PrincipalFrom(ctx); ok {
		env.Principal = p
	}
	if info, ok := route.InfoFrom(ctx); ok {
		env.Params = info.PathParameters
	}
	if env.Params == nil {
		env.Params = map[string]string{}
	}
	return env
}

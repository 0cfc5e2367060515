package route

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/command"
)

// Registrar builds a Table from the commands held in a command.Registry.
//
// Each registered component is examined in registration order:
//
//  1. A MethodRouted command contributes one route per entry point,
//     merged with its class-level declaration when it has one.
//  2. Otherwise a command with a class-level declaration contributes
//     one route.
//  3. Otherwise a Dynamic command contributes the routes it reports.
//  4. Otherwise the component is skipped.
//
// A class-level declaration is either supplied through Declare (for
// example from a routes file) or published by the command itself through
// the Declared interface; Declare takes precedence.
type Registrar struct {
	registry *command.Registry
	types    *Types
	declared map[string]Declaration
	logger   *zap.Logger
}

// NewRegistrar creates a registrar over registry. types resolves the
// input type names used by declarations; it may be nil when no
// declaration names a type.
func NewRegistrar(registry *command.Registry, types *Types, logger *zap.Logger) *Registrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registrar{
		registry: registry,
		types:    types,
		declared: make(map[string]Declaration),
		logger:   logger.Named("registrar"),
	}
}

// Declare supplies the class-level declaration for the command registered
// under name.
func (r *Registrar) Declare(name string, d Declaration) {
	r.declared[name] = d
}

// Build registers every dispatchable command into table.
func (r *Registrar) Build(table *Table) error {
	var buildErr error
	r.registry.Each(func(name string, component any) {
		if buildErr != nil {
			return
		}
		buildErr = r.load(table, name, component)
	})
	if buildErr != nil {
		return buildErr
	}

	for name := range r.declared {
		if _, ok := r.registry.Lookup(name); !ok {
			return fmt.Errorf("route declared for unregistered command %q", name)
		}
	}

	r.logger.Info("Route table built", zap.Int("routes", table.Len()))
	return nil
}

func (r *Registrar) load(table *Table, name string, component any) error {
	class, hasClass := r.classDeclaration(name, component)

	if mr, ok := component.(MethodRouted); ok {
		if entries := mr.MethodRoutes(); len(entries) > 0 {
			for _, entry := range entries {
				decl := entry.Declaration
				if hasClass {
					decl = merge(class, decl)
				}
				route, err := r.toRoute(name, decl)
				if err != nil {
					return err
				}
				route.Handler = entry.Handler
				if _, err := table.Register(route); err != nil {
					return fmt.Errorf("command %q: %w", name, err)
				}
			}
			return nil
		}
	}

	if hasClass {
		route, err := r.toRoute(name, class)
		if err != nil {
			return err
		}
		if _, err := table.Register(route); err != nil {
			return fmt.Errorf("command %q: %w", name, err)
		}
		return nil
	}

	if dyn, ok := component.(Dynamic); ok {
		for _, entry := range dyn.Routes() {
			target := entry.Command
			if target == "" {
				target = name
			}
			route, err := r.toRoute(target, entry.Declaration)
			if err != nil {
				return err
			}
			route.Handler = entry.Handler
			if _, err := table.Register(route); err != nil {
				return fmt.Errorf("command %q: %w", name, err)
			}
		}
		return nil
	}

	r.logger.Debug("Component has no routing information and will not be dispatched",
		zap.String("name", name))
	return nil
}

func (r *Registrar) classDeclaration(name string, component any) (Declaration, bool) {
	if d, ok := r.declared[name]; ok {
		return d, true
	}
	if d, ok := component.(Declared); ok {
		return d.Declaration(), true
	}
	return Declaration{}, false
}

func (r *Registrar) toRoute(name string, d Declaration) (Route, error) {
	route := Route{
		URI:           d.URI,
		Method:        d.Method,
		CommandName:   name,
		InputType:     d.InputType,
		InputKey:      d.InputKey,
		Cached:        d.Cached,
		Authenticated: d.IsAuthenticated(),
		Rule:          d.Rule,
	}
	if route.InputType == nil && d.Input != "" {
		typ, err := r.types.Resolve(d.Input)
		if err != nil {
			return Route{}, fmt.Errorf("command %q: %w", name, err)
		}
		route.InputType = typ
	}
	return route, nil
}

package command

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrCommandNotFound is returned when no component is registered
	// under a name.
	ErrCommandNotFound = errors.New("command not found")
	// ErrNotCommand is returned when the component registered under a
	// name does not implement Command.
	ErrNotCommand = errors.New("component is not a command")
	// ErrDuplicateName is returned when a name is registered twice.
	ErrDuplicateName = errors.New("name already registered")
)

// ResolutionError reports a failed name lookup.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Registry maps names to components. Components are usually commands but
// anything may be registered; Command reports a typed error when the
// named component is not one. Iteration follows registration order.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	entries map[string]any
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]any),
		logger:  logger.Named("registry"),
	}
}

// Register adds component under name.
func (r *Registry) Register(name string, component any) error {
	if name == "" {
		return fmt.Errorf("register: empty name")
	}
	if component == nil {
		return fmt.Errorf("register %q: nil component", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateName)
	}
	r.names = append(r.names, name)
	r.entries[name] = component
	r.logger.Debug("Registered component", zap.String("name", name))
	return nil
}

// MustRegister is Register that panics on error. Intended for static
// wiring at startup.
func (r *Registry) MustRegister(name string, component any) {
	if err := r.Register(name, component); err != nil {
		panic(err)
	}
}

// Lookup returns the component registered under name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[name]
	return c, ok
}

// Command resolves name to a Command.
func (r *Registry) Command(name string) (Command, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return nil, &ResolutionError{Name: name, Err: ErrCommandNotFound}
	}
	cmd, ok := c.(Command)
	if !ok {
		return nil, &ResolutionError{Name: name, Err: ErrNotCommand}
	}
	return cmd, nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Each calls fn for every component in registration order.
func (r *Registry) Each(fn func(name string, component any)) {
	r.mu.RLock()
	names := append([]string(nil), r.names...)
	entries := make(map[string]any, len(r.entries))
	for k, v := range r.entries {
		entries[k] = v
	}
	r.mu.RUnlock()
	for _, n := range names {
		fn(n, entries[n])
	}
}

// Proxy is a Command that resolves a named command from a Registry the
// first time it is used. A successful resolution is kept; a failed one is
// retried on the next call.
type Proxy struct {
	name     string
	registry *Registry

	mu       sync.Mutex
	resolved Command
}

// NewProxy creates a Proxy for name.
func NewProxy(registry *Registry, name string) *Proxy {
	return &Proxy{name: name, registry: registry}
}

// Name returns the proxied name.
func (p *Proxy) Name() string { return p.name }

// Resolve returns the proxied command, looking it up if necessary.
func (p *Proxy) Resolve() (Command, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved != nil {
		return p.resolved, nil
	}
	if p.registry == nil {
		return nil, &ResolutionError{Name: p.name, Err: ErrCommandNotFound}
	}
	cmd, err := p.registry.Command(p.name)
	if err != nil {
		return nil, err
	}
	p.resolved = cmd
	return cmd, nil
}

// Execute resolves the command and runs it.
func (p *Proxy) Execute(ctx *Context) (*Result, error) {
	cmd, err := p.Resolve()
	if err != nil {
		return nil, err
	}
	return cmd.Execute(ctx)
}

// PostProcess forwards to the proxied command when it has already been
// resolved and is a Filter.
func (p *Proxy) PostProcess(ctx *Context, result *Result, cause error) error {
	p.mu.Lock()
	cmd := p.resolved
	p.mu.Unlock()
	if f, ok := cmd.(Filter); ok {
		return f.PostProcess(ctx, result, cause)
	}
	return nil
}

// Authorize delegates to the proxied command when it is Authorized. A
// resolution failure denies access.
func (p *Proxy) Authorize(ctx *Context) bool {
	cmd, err := p.Resolve()
	if err != nil {
		p.registry.loggerOrNop().Error("Cannot authorize unresolved command",
			zap.String("name", p.name),
			zap.Error(err))
		return false
	}
	if a, ok := cmd.(Authorized); ok {
		return a.Authorize(ctx)
	}
	return true
}

func (r *Registry) loggerOrNop() *zap.Logger {
	if r == nil || r.logger == nil {
		return zap.NewNop()
	}
	return r.logger
}

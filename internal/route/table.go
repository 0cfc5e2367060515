package route

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Table is the ordered set of registered routes.
//
// Routes are registered during startup and the table is then sealed.
// Lookups do not lock: they rely on every Register call having completed
// before the first lookup, which Seal makes explicit.
type Table struct {
	routes  []*Route
	matcher *Matcher
	sealed  atomic.Bool
	logger  *zap.Logger
}

// NewTable creates an empty table.
func NewTable(logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		matcher: NewMatcher(),
		logger:  logger.Named("routes"),
	}
}

// Matcher returns the path matcher used for lookups.
func (t *Table) Matcher() *Matcher { return t.matcher }

// Register validates r and appends it. The method is upper-cased and
// defaults to GET. A route with an input type but no input key binds
// under command.DefaultInputKey.
func (t *Table) Register(r Route) (*Route, error) {
	if t.sealed.Load() {
		return nil, ErrTableSealed
	}

	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = "GET"
	}
	if r.URI == "" {
		return nil, fmt.Errorf("%w: uri is required", ErrInvalidRoute)
	}
	if r.CommandName == "" {
		return nil, fmt.Errorf("%w: command name is required for %s %s", ErrInvalidRoute, r.Method, r.URI)
	}
	if r.InputType == nil && r.InputKey != "" {
		return nil, fmt.Errorf("%w: input key %q without input type for %s %s", ErrInvalidRoute, r.InputKey, r.Method, r.URI)
	}
	if r.InputType != nil && r.InputKey == "" {
		r.InputKey = r.BindingKey()
	}
	if err := t.matcher.Validate(r.URI); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoute, err)
	}

	stored := r
	t.routes = append(t.routes, &stored)
	t.logger.Debug("Registered route",
		zap.String("method", stored.Method),
		zap.String("uri", stored.URI),
		zap.String("command", stored.CommandName),
		zap.Bool("authenticated", stored.Authenticated))
	return &stored, nil
}

// Seal stops further registration.
func (t *Table) Seal() {
	t.sealed.Store(true)
}

// Sealed reports whether Seal has been called.
func (t *Table) Sealed() bool {
	return t.sealed.Load()
}

// Lookup returns the first registered route whose method equals method
// and whose template matches uri.
func (t *Table) Lookup(uri, method string) (*Info, bool) {
	for _, r := range t.routes {
		if r.Method != method {
			continue
		}
		if vars, ok := t.matcher.ExtractVariables(r.URI, uri); ok {
			return &Info{Route: r, PathParameters: vars}, true
		}
	}
	return nil, false
}

// Routes returns the registered routes in registration order.
func (t *Table) Routes() []*Route {
	return append([]*Route(nil), t.routes...)
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	return len(t.routes)
}

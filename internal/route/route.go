// Package route holds the route table that maps an HTTP method and request
// path to a named command, the Ant-style matcher it uses, and the
// registrar that builds the table from command declarations.
package route

import (
	"errors"
	"reflect"

	"github.com/sirosfoundation/go-xsf/internal/command"
)

var (
	// ErrInvalidRoute is returned when a route is missing a required field
	// or carries an inconsistent input binding.
	ErrInvalidRoute = errors.New("invalid route")
	// ErrInvalidPattern is returned for a URI template that cannot be
	// compiled.
	ErrInvalidPattern = errors.New("invalid uri pattern")
	// ErrTableSealed is returned when registering into a table that is
	// already serving lookups.
	ErrTableSealed = errors.New("route table is sealed")
	// ErrUnknownType is returned when a declaration names an input type
	// that was never registered.
	ErrUnknownType = errors.New("unknown input type")
)

// Route binds an HTTP method and URI template to a named command.
type Route struct {
	URI           string       `json:"uri"`
	Method        string       `json:"method"`
	CommandName   string       `json:"command"`
	InputType     reflect.Type `json:"-"`
	InputKey      string       `json:"input_key,omitempty"`
	Cached        bool         `json:"cached"`
	Authenticated bool         `json:"authenticated"`
	Rule          string       `json:"rule,omitempty"`

	// Handler is the entry point for routes declared per method on a
	// command. See Dispatch.
	Handler command.Func `json:"-"`
}

// InputTypeName returns the name of the declared input type, or "".
func (r *Route) InputTypeName() string {
	if r.InputType == nil {
		return ""
	}
	return r.InputType.String()
}

// BindingKey is the context key the decoded body is stored under.
func (r *Route) BindingKey() string {
	if r.InputKey == "" {
		return command.DefaultInputKey
	}
	return r.InputKey
}

// Info is the outcome of a successful lookup.
type Info struct {
	Route          *Route
	PathParameters map[string]string
}

// InfoFrom returns the routing info stored in ctx by the dispatcher.
func InfoFrom(ctx *command.Context) (*Info, bool) {
	return command.Find[*Info](ctx, command.KeyRoutingInfo)
}

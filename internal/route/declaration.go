package route

import (
	"net/http"
	"reflect"

	"github.com/sirosfoundation/go-xsf/internal/command"
)

// Declaration is the per-route configuration a command publishes or that
// is supplied for it in a routes file.
type Declaration struct {
	URI           string       `yaml:"uri"`
	Method        string       `yaml:"method"`
	Input         string       `yaml:"input"`
	InputType     reflect.Type `yaml:"-"`
	InputKey      string       `yaml:"input_key"`
	Cached        bool         `yaml:"cached"`
	Authenticated *bool        `yaml:"authenticated"`
	// Rule is a boolean expression over the request principal that must
	// hold for the route to be authorized.
	Rule string `yaml:"authorize"`
}

// At declares uri for method.
func At(method, uri string) Declaration {
	return Declaration{URI: uri, Method: method}
}

// Get declares a GET route.
func Get(uri string) Declaration { return At(http.MethodGet, uri) }

// Post declares a POST route.
func Post(uri string) Declaration { return At(http.MethodPost, uri) }

// Put declares a PUT route.
func Put(uri string) Declaration { return At(http.MethodPut, uri) }

// Delete declares a DELETE route.
func Delete(uri string) Declaration { return At(http.MethodDelete, uri) }

// Public marks the route as not requiring an authenticated principal.
func (d Declaration) Public() Declaration {
	f := false
	d.Authenticated = &f
	return d
}

// Protected explicitly marks the route as requiring a principal.
func (d Declaration) Protected() Declaration {
	t := true
	d.Authenticated = &t
	return d
}

// Authorize attaches an authorization rule, for example
// `principal.Admin || "Editor" in principal.Roles`.
func (d Declaration) Authorize(rule string) Declaration {
	d.Rule = rule
	return d
}

// Cache allows clients to cache successful responses.
func (d Declaration) Cache() Declaration {
	d.Cached = true
	return d
}

// Bind decodes the request body into a value of prototype's type and
// stores it under key. An empty key selects command.DefaultInputKey.
// Pointer prototypes are dereferenced.
func (d Declaration) Bind(key string, prototype any) Declaration {
	d.InputType = elemType(prototype)
	d.InputKey = key
	return d
}

// IsAuthenticated reports the effective authentication flag. Routes are
// authenticated unless declared otherwise.
func (d Declaration) IsAuthenticated() bool {
	if d.Authenticated == nil {
		return true
	}
	return *d.Authenticated
}

// merge combines a class-level declaration with a method-level one. The
// URI is the plain concatenation of both. The method's authentication
// flag only wins when it is explicitly false. A method without a rule
// inherits the class rule. Everything else comes from the method.
func merge(class, method Declaration) Declaration {
	out := method
	out.URI = class.URI + method.URI
	if out.Rule == "" {
		out.Rule = class.Rule
	}
	if method.Authenticated != nil && !*method.Authenticated {
		out.Authenticated = method.Authenticated
	} else {
		a := class.IsAuthenticated()
		out.Authenticated = &a
	}
	return out
}

// Declared is implemented by commands that expose a single route.
type Declared interface {
	Declaration() Declaration
}

// MethodRoute is one entry point of a command that exposes several.
type MethodRoute struct {
	Declaration
	Handler command.Func
}

// MethodRouted is implemented by commands that expose one route per
// entry point. When the command is also Declared, its declaration acts as
// the class-level default for every entry.
type MethodRouted interface {
	MethodRoutes() []MethodRoute
}

// DynamicRoute is one route computed by a Dynamic command. Like every
// declaration it is authenticated unless marked Public. An empty Command
// binds the route to the reporting command.
type DynamicRoute struct {
	Declaration
	Command string
	Handler command.Func
}

// Dynamic is implemented by commands that compute their routes at
// startup.
type Dynamic interface {
	Routes() []DynamicRoute
}

func elemType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

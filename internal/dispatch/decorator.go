package dispatch

import "github.com/sirosfoundation/go-xsf/internal/command"

// Decorator may read, augment or replace the request context after it is
// built and before authorization runs.
type Decorator interface {
	Decorate(ctx *command.Context) *command.Context
}

// DecoratorFunc adapts a function to the Decorator interface.
type DecoratorFunc func(ctx *command.Context) *command.Context

// Decorate calls f.
func (f DecoratorFunc) Decorate(ctx *command.Context) *command.Context { return f(ctx) }

// decorate applies decorators in order. A decorator returning nil leaves
// the context as it was.
func decorate(ctx *command.Context, decorators []Decorator) *command.Context {
	for _, d := range decorators {
		if next := d.Decorate(ctx); next != nil {
			ctx = next
		}
	}
	return ctx
}

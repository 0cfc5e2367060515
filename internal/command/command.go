// Package command defines the units of business logic invoked by the
// dispatcher, their optional capabilities and the chain that composes them.
package command

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Command is a unit of business logic.
type Command interface {
	Execute(ctx *Context) (*Result, error)
}

// Func adapts a function to the Command interface.
type Func func(ctx *Context) (*Result, error)

// Execute calls f(ctx).
func (f Func) Execute(ctx *Context) (*Result, error) { return f(ctx) }

// Filter is implemented by commands that want to see the final result of
// a request or chain, including any error that aborted it.
type Filter interface {
	PostProcess(ctx *Context, result *Result, cause error) error
}

// Authorized is implemented by commands that make their own access
// decision on top of the framework authorizer.
type Authorized interface {
	Authorize(ctx *Context) bool
}

// Result is the outcome of a command.
type Result struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
}

// Success returns a succeeded result carrying data.
func Success(data any) *Result {
	return &Result{Succeeded: true, Data: data}
}

// Failure returns a failed result with a message.
func Failure(message string) *Result {
	return &Result{Succeeded: false, Message: message}
}

// Failuref is Failure with formatting.
func Failuref(format string, args ...any) *Result {
	return Failure(fmt.Sprintf(format, args...))
}

// WithMessage sets the message and returns the result.
func (r *Result) WithMessage(message string) *Result {
	r.Message = message
	return r
}

// ValidationError signals bad input detected by command logic. Its message
// is safe to return to the caller.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid creates a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AsValidation reports whether err wraps a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// PanicError carries a panic recovered while running a command or filter.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command panic: %v", e.Value)
}

// Run executes cmd, converting a panic into a *PanicError.
func Run(cmd Command, ctx *Context) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return cmd.Execute(ctx)
}

// RunFilter invokes f.PostProcess, converting a panic into a *PanicError.
func RunFilter(f Filter, ctx *Context, result *Result, cause error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return f.PostProcess(ctx, result, cause)
}

package route

import (
	"github.com/sirosfoundation/go-xsf/internal/command"
)

// Dispatch runs the entry point of the route the current request matched.
// Commands that implement MethodRouted call it from Execute.
func Dispatch(ctx *command.Context) (*command.Result, error) {
	info, ok := InfoFrom(ctx)
	if !ok || info.Route == nil {
		return command.Failure("Method dispatch fails for unknown route"), nil
	}
	if info.Route.Handler == nil {
		return command.Failuref("Unable to dispatch to route=%s", info.Route.URI), nil
	}
	return info.Route.Handler(ctx)
}

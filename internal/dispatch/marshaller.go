package dispatch

import (
	"reflect"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
)

// Messages written by the default marshaller.
const (
	StandardErrorMessage     = "An error occurred while processing the request"
	AuthorizationFailureText = "Authorization fails for route=%s"
	ParseFailureText         = "Error parsing input: %s"
)

// ProcessedInput is the outcome of decoding a request body. CanContinue is
// false when decoding failed and a response has already been written.
type ProcessedInput struct {
	CanContinue bool
	Data        any
}

// Deserializer converts a request body into the route's input type.
// A nil target or a nil body yields a ProcessedInput that continues with
// no data.
type Deserializer interface {
	FromRequest(ctx *command.Context, uri string, body []byte, target reflect.Type) ProcessedInput
}

// Responder writes every terminal outcome of the pipeline.
type Responder interface {
	ToResponse(ctx *command.Context, uri string, r *route.Route, result *command.Result)
	OnRouteNotFound(ctx *command.Context, uri string)
	OnException(ctx *command.Context, uri string, r *route.Route, err error)
	OnAuthorizationFailure(ctx *command.Context, uri string, r *route.Route)
}

// Marshaller is the pipeline's single I/O collaborator.
type Marshaller interface {
	Deserializer
	Responder
}

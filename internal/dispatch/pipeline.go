// Package dispatch turns an HTTP request into a command invocation: it
// looks up the route, builds the request context, authorizes, decodes the
// body, runs the command and hands the result to the marshaller.
package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/auth"
	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/internal/session"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

const tracerName = "github.com/sirosfoundation/go-xsf/internal/dispatch"

// DefaultPrefix is stripped from request paths when no prefix is configured.
const DefaultPrefix = "/xsf"

// Pipeline dispatches requests to the commands of a sealed route table.
// It is safe for concurrent use once constructed.
type Pipeline struct {
	prefix      string
	table       *route.Table
	registry    *command.Registry
	authorizer  auth.Authorizer
	marshaller  Marshaller
	decorators  []Decorator
	sessions    *session.Manager
	application *Application
	tracer      trace.Tracer
	logger      *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPrefix sets the path prefix stripped before route lookup.
func WithPrefix(prefix string) Option {
	return func(p *Pipeline) { p.prefix = prefix }
}

// WithAuthorizer replaces the default allow-all authorizer.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(p *Pipeline) { p.authorizer = a }
}

// WithMarshaller replaces the default JSON marshaller.
func WithMarshaller(m Marshaller) Option {
	return func(p *Pipeline) { p.marshaller = m }
}

// WithDecorators appends context decorators.
func WithDecorators(decorators ...Decorator) Option {
	return func(p *Pipeline) { p.decorators = append(p.decorators, decorators...) }
}

// WithSessions enables server-side sessions.
func WithSessions(m *session.Manager) Option {
	return func(p *Pipeline) { p.sessions = m }
}

// WithApplication sets the process-wide attributes.
func WithApplication(a *Application) Option {
	return func(p *Pipeline) { p.application = a }
}

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(tracerName) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a pipeline over table and registry. The table is sealed.
func New(table *route.Table, registry *command.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		prefix:     DefaultPrefix,
		table:      table,
		registry:   registry,
		authorizer: auth.Null{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("dispatch")
	if p.marshaller == nil {
		p.marshaller = NewJSONMarshaller(config.MarshallerConfig{}, p.logger)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	table.Seal()
	return p
}

// Prefix returns the path prefix the pipeline strips.
func (p *Pipeline) Prefix() string { return p.prefix }

// StripPrefix removes everything up to and including the first occurrence
// of the prefix. A path without the prefix is returned unchanged.
func (p *Pipeline) StripPrefix(path string) string {
	if p.prefix == "" {
		return path
	}
	i := strings.Index(path, p.prefix)
	if i < 0 {
		return path
	}
	return path[i+len(p.prefix):]
}

// Handle is the gin handler for every path under the prefix.
func (p *Pipeline) Handle(c *gin.Context) {
	uri := p.StripPrefix(c.Request.URL.Path)

	spanCtx, span := p.tracer.Start(c.Request.Context(), "xsf.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("xsf.uri", uri),
		),
	)
	defer span.End()

	var sess *session.Session
	if p.sessions != nil {
		sess = p.sessions.Load(c)
	}

	var (
		ctx *command.Context
		r   *route.Route
	)
	defer func() {
		if rec := recover(); rec != nil {
			err := &command.PanicError{Value: rec}
			p.logger.Error("Panic while dispatching", zap.String("uri", uri), zap.Any("panic", rec))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if c.Writer.Written() {
				return
			}
			if ctx == nil {
				ctx = newWebContext(spanCtx, c, nil, sess, p.application)
			}
			p.marshaller.OnException(ctx, uri, r, err)
		}
	}()

	info, ok := p.table.Lookup(uri, c.Request.Method)
	if !ok {
		ctx = newWebContext(spanCtx, c, nil, sess, p.application)
		span.AddEvent("route_not_found")
		p.marshaller.OnRouteNotFound(ctx, uri)
		return
	}
	r = info.Route
	span.SetAttributes(
		attribute.String("xsf.route", r.URI),
		attribute.String("xsf.command", r.CommandName),
	)

	ctx = decorate(newWebContext(spanCtx, c, info.PathParameters, sess, p.application), p.decorators)

	cmd, err := p.registry.Command(r.CommandName)
	if err != nil {
		p.logger.Debug("Could not resolve command for route",
			zap.String("uri", uri), zap.String("command", r.CommandName), zap.Error(err))
		span.AddEvent("route_not_found")
		p.marshaller.OnRouteNotFound(ctx, uri)
		return
	}

	ctx.Put(command.KeyRoutingInfo, info)

	if !p.authorizer.Authorize(r, cmd, ctx) {
		span.AddEvent("authorization_denied")
		p.commit(c, ctx, sess)
		p.marshaller.OnAuthorizationFailure(ctx, uri, r)
		return
	}

	body, err := readBody(c)
	if err != nil {
		p.fail(c, ctx, sess, span, uri, r, err)
		return
	}

	p.commit(c, ctx, sess)
	input := p.marshaller.FromRequest(ctx, uri, body, r.InputType)
	if !input.CanContinue {
		span.AddEvent("input_rejected")
		return
	}
	if input.Data != nil {
		ctx.Put(r.BindingKey(), input.Data)
	}

	result, err := command.Run(cmd, ctx)
	if err == nil && result == nil {
		err = fmt.Errorf("command %q returned no result", r.CommandName)
	}
	if err != nil {
		p.fail(c, ctx, sess, span, uri, r, err)
		return
	}

	if f, ok := cmd.(command.Filter); ok {
		if err := command.RunFilter(f, ctx, result, nil); err != nil {
			p.logger.Error("Error invoking filter",
				zap.String("command", r.CommandName), zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Bool("xsf.succeeded", result.Succeeded))
	p.commit(c, ctx, sess)
	p.marshaller.ToResponse(ctx, uri, r, result)
}

func (p *Pipeline) fail(c *gin.Context, ctx *command.Context, sess *session.Session, span trace.Span, uri string, r *route.Route, err error) {
	p.logger.Error("Error processing route", zap.String("uri", uri), zap.Error(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.commit(c, ctx, sess)
	p.marshaller.OnException(ctx, uri, r, err)
}

// commit pushes context updates onto the gin context and persists the
// session. It runs before anything is written to the response so the
// session cookie can still be set.
func (p *Pipeline) commit(c *gin.Context, ctx *command.Context, sess *session.Session) {
	unload(c, ctx)
	if p.sessions == nil || sess == nil {
		return
	}
	if err := p.sessions.Save(c, sess); err != nil {
		p.logger.Error("Failed to save session", zap.Error(err))
	}
}

// readBody returns the request body, or nil when it is empty.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}


package dispatch

import (
	"context"
	"maps"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/session"
)

// KeyGinContext holds the *gin.Context of the request being dispatched.
const KeyGinContext = "_gin_context_"

// GinContext returns the gin context the request is being served on.
func GinContext(ctx *command.Context) (*gin.Context, bool) {
	c, ok := command.Find[*gin.Context](ctx, KeyGinContext)
	return c, ok && c != nil
}

// Application holds process-wide attributes visible to every request as
// the last context fallback.
type Application struct {
	mu    sync.RWMutex
	attrs map[string]any
}

// NewApplication creates an attribute set seeded with attrs.
func NewApplication(attrs map[string]any) *Application {
	a := &Application{attrs: make(map[string]any, len(attrs))}
	maps.Copy(a.attrs, attrs)
	return a
}

// Set stores an attribute. A nil value removes it.
func (a *Application) Set(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if value == nil {
		delete(a.attrs, key)
		return
	}
	a.attrs[key] = value
}

// Lookup implements command.Source.
func (a *Application) Lookup(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.attrs[key]
	return v, ok
}

// ginKeys exposes values set on the gin context by earlier middleware.
func ginKeys(c *gin.Context) command.Source {
	return command.SourceFunc(func(key string) (any, bool) {
		return c.Get(key)
	})
}

// queryParams exposes the request's query parameters. A parameter given
// once resolves to a string, one given several times to a []string.
func queryParams(u *url.URL) command.Source {
	var values url.Values
	var once sync.Once
	return command.SourceFunc(func(key string) (any, bool) {
		once.Do(func() { values = u.Query() })
		switch v := values[key]; len(v) {
		case 0:
			return nil, false
		case 1:
			return v[0], true
		default:
			return append([]string(nil), v...), true
		}
	})
}

// newWebContext builds the request context. Lookups fall back, in order,
// to path parameters, gin keys, query parameters, the session and the
// application attributes.
func newWebContext(parent context.Context, c *gin.Context, params map[string]string, sess *session.Session, app *Application) *command.Context {
	sources := []command.Source{
		command.StringMapSource(params),
		ginKeys(c),
		queryParams(c.Request.URL),
	}
	if sess != nil {
		sources = append(sources, sess)
	}
	if app != nil {
		sources = append(sources, app)
	}

	ctx := command.NewContext(parent, sources...)
	ctx.Seed(command.KeyRequest, c.Request)
	ctx.Seed(command.KeyResponse, c.Writer)
	ctx.Seed(KeyGinContext, c)
	if params != nil {
		ctx.Seed(command.KeyPathParameters, params)
	}
	if sess != nil {
		ctx.Seed(command.KeySession, sess)
	}
	if app != nil {
		ctx.Seed(command.KeyApplication, app)
	}
	return ctx
}

// unload copies values written by commands back onto the gin context so
// outer middleware can observe them.
func unload(c *gin.Context, ctx *command.Context) {
	for k, v := range ctx.Updates() {
		c.Set(k, v)
	}
}

package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sirosfoundation/go-xsf/internal/auth"
	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/internal/session"
	"github.com/sirosfoundation/go-xsf/internal/storage/memory"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type greeting struct {
	Name  string `json:"name" mapstructure:"name" binding:"required"`
	Times int    `json:"times" mapstructure:"times"`
}

type fixture struct {
	registry *command.Registry
	table    *route.Table
}

func newFixture() *fixture {
	return &fixture{
		registry: command.NewRegistry(zap.NewNop()),
		table:    route.NewTable(zap.NewNop()),
	}
}

func (f *fixture) add(t *testing.T, r route.Route, cmd command.Command) {
	t.Helper()
	if cmd != nil {
		require.NoError(t, f.registry.Register(r.CommandName, cmd))
	}
	_, err := f.table.Register(r)
	require.NoError(t, err)
}

func (f *fixture) engine(opts ...Option) (*gin.Engine, *Pipeline) {
	p := New(f.table, f.registry, opts...)
	e := gin.New()
	e.Any(p.Prefix()+"/*path", p.Handle)
	return e, p
}

func serve(e *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) command.Result {
	t.Helper()
	var out command.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func constant(data any) command.Func {
	return func(*command.Context) (*command.Result, error) { return command.Success(data), nil }
}

func TestPipeline_Success(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/hello", Method: http.MethodGet, CommandName: "hello"}, constant("Hello World"))
	e, _ := f.engine()

	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/hello", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.NotEmpty(t, w.Header().Get("Expires"))
	res := decodeResult(t, w)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "Hello World", res.Data)
}

func TestPipeline_CachedRouteKeepsCacheHeaders(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/cached", Method: http.MethodGet, CommandName: "cached", Cached: true}, constant(1))
	e, _ := f.engine()

	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/cached", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Pragma"))
}

func TestPipeline_NotFound(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/hello", Method: http.MethodGet, CommandName: "hello"}, constant("x"))
	f.add(t, route.Route{URI: "/ghost", Method: http.MethodGet, CommandName: "unregistered"}, nil)
	e, _ := f.engine()

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"unknown path", http.MethodGet, "/xsf/nope"},
		{"wrong verb", http.MethodPost, "/xsf/hello"},
		{"head request", http.MethodHead, "/xsf/hello"},
		{"unresolvable command", http.MethodGet, "/xsf/ghost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(e, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Empty(t, w.Body.String())
		})
	}
}

func TestPipeline_PathParameters(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/testing/{last}/{first}", Method: http.MethodGet, CommandName: "names"},
		command.Func(func(ctx *command.Context) (*command.Result, error) {
			info, ok := route.InfoFrom(ctx)
			require.True(t, ok)
			return command.Success(map[string]any{
				"first":  ctx.String("first"),
				"last":   ctx.String("last"),
				"params": info.PathParameters,
			}), nil
		}))
	e, _ := f.engine()

	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/testing/bloggs/joe", nil))
	res := decodeResult(t, w)
	data := res.Data.(map[string]any)
	assert.Equal(t, "joe", data["first"])
	assert.Equal(t, "bloggs", data["last"])
	assert.Equal(t, map[string]any{"first": "joe", "last": "bloggs"}, data["params"])
}

func TestPipeline_PrefixAnywhereInPath(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/hello", Method: http.MethodGet, CommandName: "hello"}, constant("ok"))
	p := New(f.table, f.registry)

	assert.Equal(t, "/hello", p.StripPrefix("/xsf/hello"))
	assert.Equal(t, "/hello", p.StripPrefix("/delegate/xsf/hello"))
	assert.Equal(t, "/other", p.StripPrefix("/other"))
}

func TestPipeline_QueryParameters(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/query", Method: http.MethodGet, CommandName: "query"},
		command.Func(func(ctx *command.Context) (*command.Result, error) {
			return command.Success(map[string]any{
				"single": ctx.Get("name"),
				"multi":  ctx.Get("tag"),
			}), nil
		}))
	e, _ := f.engine()

	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/query?name=joe&tag=a&tag=b", nil))
	data := decodeResult(t, w).Data.(map[string]any)
	assert.Equal(t, "joe", data["single"])
	assert.Equal(t, []any{"a", "b"}, data["multi"])
}

func TestPipeline_Authorization(t *testing.T) {
	newEngine := func(raw bool) *gin.Engine {
		f := newFixture()
		f.add(t, route.Route{URI: "/secret", Method: http.MethodGet, CommandName: "secret", Authenticated: true}, constant("s"))
		f.add(t, route.Route{URI: "/open", Method: http.MethodGet, CommandName: "open"}, constant("o"))
		e, _ := f.engine(
			WithAuthorizer(auth.NewDefault(nil, nil)),
			WithMarshaller(NewJSONMarshaller(config.MarshallerConfig{RawJSON: raw}, nil)),
		)
		return e
	}

	e := newEngine(false)
	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/secret", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	assert.False(t, res.Succeeded)
	assert.Equal(t, "Authorization fails for route=/secret", res.Message)

	w = serve(e, httptest.NewRequest(http.MethodGet, "/xsf/open", nil))
	assert.True(t, decodeResult(t, w).Succeeded)

	w = serve(newEngine(true), httptest.NewRequest(http.MethodGet, "/xsf/secret", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestPipeline_DecoratorsRunBeforeAuthorization(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/secret", Method: http.MethodGet, CommandName: "secret", Authenticated: true},
		command.Func(func(ctx *command.Context) (*command.Result, error) {
			p, _ := auth.PrincipalFrom(ctx)
			return command.Success(p.Subject), nil
		}))

	var order []string
	e, _ := f.engine(
		WithAuthorizer(auth.NewDefault(nil, nil)),
		WithDecorators(
			DecoratorFunc(func(ctx *command.Context) *command.Context {
				order = append(order, "first")
				if ctx.String("user") != "" {
					auth.SetPrincipal(ctx, &auth.Principal{Subject: ctx.String("user")})
				}
				return ctx
			}),
			DecoratorFunc(func(ctx *command.Context) *command.Context {
				order = append(order, "second")
				return nil
			}),
		),
	)

	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/secret?user=jdoe", nil))
	res := decodeResult(t, w)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "jdoe", res.Data)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPipeline_InputBinding(t *testing.T) {
	var got *greeting
	calls := 0
	f := newFixture()
	f.add(t, route.Route{
		URI: "/greet", Method: http.MethodPost, CommandName: "greet",
		InputType: reflect.TypeOf(greeting{}), InputKey: "greeting",
	}, command.Func(func(ctx *command.Context) (*command.Result, error) {
		calls++
		got, _ = command.Find[*greeting](ctx, "greeting")
		return command.Success(nil), nil
	}))
	f.add(t, route.Route{
		URI: "/greet-default", Method: http.MethodPost, CommandName: "greet-default",
		InputType: reflect.TypeOf(greeting{}),
	}, command.Func(func(ctx *command.Context) (*command.Result, error) {
		g, ok := command.Find[*greeting](ctx, command.DefaultInputKey)
		return command.Success(ok && g.Name == "ann"), nil
	}))
	e, _ := f.engine()

	t.Run("json body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/xsf/greet", strings.NewReader(`{"name":"joe","times":2}`))
		req.Header.Set("Content-Type", "application/json")
		w := serve(e, req)
		assert.True(t, decodeResult(t, w).Succeeded)
		require.NotNil(t, got)
		assert.Equal(t, greeting{Name: "joe", Times: 2}, *got)
	})

	t.Run("form body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/xsf/greet", strings.NewReader("name=sue&times=3"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := serve(e, req)
		assert.True(t, decodeResult(t, w).Succeeded)
		assert.Equal(t, greeting{Name: "sue", Times: 3}, *got)
	})

	t.Run("default key", func(t *testing.T) {
		w := serve(e, httptest.NewRequest(http.MethodPost, "/xsf/greet-default", strings.NewReader(`{"name":"ann"}`)))
		assert.Equal(t, true, decodeResult(t, w).Data)
	})

	t.Run("empty body binds nothing", func(t *testing.T) {
		got = nil
		w := serve(e, httptest.NewRequest(http.MethodPost, "/xsf/greet", nil))
		assert.True(t, decodeResult(t, w).Succeeded)
		assert.Nil(t, got)
	})

	t.Run("malformed body", func(t *testing.T) {
		before := calls
		w := serve(e, httptest.NewRequest(http.MethodPost, "/xsf/greet", strings.NewReader(`{"name":`)))
		assert.Equal(t, http.StatusOK, w.Code)
		res := decodeResult(t, w)
		assert.False(t, res.Succeeded)
		assert.True(t, strings.HasPrefix(res.Message, "Error parsing input: "), res.Message)
		assert.Equal(t, before, calls, "command must not run")
	})

	t.Run("failed validation", func(t *testing.T) {
		before := calls
		w := serve(e, httptest.NewRequest(http.MethodPost, "/xsf/greet", strings.NewReader(`{"times":1}`)))
		assert.False(t, decodeResult(t, w).Succeeded)
		assert.Equal(t, before, calls)
	})
}

func TestPipeline_ParseFailureStatus(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/greet", Method: http.MethodPost, CommandName: "greet", InputType: reflect.TypeOf(greeting{})}, constant(nil))
	e, _ := f.engine(WithMarshaller(NewJSONMarshaller(config.MarshallerConfig{ParseFailureStatus: http.StatusBadRequest}, nil)))

	w := serve(e, httptest.NewRequest(http.MethodPost, "/xsf/greet", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decodeResult(t, w).Succeeded)
}

func TestPipeline_Exceptions(t *testing.T) {
	commands := map[string]command.Func{
		"/validation": func(*command.Context) (*command.Result, error) {
			return nil, command.Invalid("First name is required.")
		},
		"/internal": func(*command.Context) (*command.Result, error) {
			return nil, errors.New("database password is hunter2")
		},
		"/panic": func(*command.Context) (*command.Result, error) {
			panic("boom")
		},
		"/nil": func(*command.Context) (*command.Result, error) {
			return nil, nil
		},
	}
	newEngine := func(raw bool) *gin.Engine {
		f := newFixture()
		for uri, cmd := range commands {
			f.add(t, route.Route{URI: uri, Method: http.MethodGet, CommandName: uri}, cmd)
		}
		e, _ := f.engine(WithMarshaller(NewJSONMarshaller(config.MarshallerConfig{RawJSON: raw}, nil)))
		return e
	}

	e := newEngine(false)
	tests := []struct {
		path    string
		message string
	}{
		{"/xsf/validation", "First name is required."},
		{"/xsf/internal", StandardErrorMessage},
		{"/xsf/panic", StandardErrorMessage},
		{"/xsf/nil", StandardErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(e, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			res := decodeResult(t, w)
			assert.False(t, res.Succeeded)
			assert.Equal(t, tt.message, res.Message)
		})
	}

	raw := newEngine(true)
	w := serve(raw, httptest.NewRequest(http.MethodGet, "/xsf/internal", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
}

type filteredCommand struct {
	result  *command.Result
	err     error
	calls   int
	results []*command.Result
	causes  []error
}

func (f *filteredCommand) Execute(*command.Context) (*command.Result, error) {
	return f.result, f.err
}

func (f *filteredCommand) PostProcess(_ *command.Context, result *command.Result, cause error) error {
	f.calls++
	f.results = append(f.results, result)
	f.causes = append(f.causes, cause)
	return errors.New("filter failures are only logged")
}

func TestPipeline_PostProcess(t *testing.T) {
	ok := &filteredCommand{result: command.Success("done")}
	failing := &filteredCommand{err: errors.New("nope")}

	f := newFixture()
	f.add(t, route.Route{URI: "/ok", Method: http.MethodGet, CommandName: "ok"}, ok)
	f.add(t, route.Route{URI: "/failing", Method: http.MethodGet, CommandName: "failing"}, failing)
	e, _ := f.engine()

	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/ok", nil))
	assert.True(t, decodeResult(t, w).Succeeded)
	assert.Equal(t, 1, ok.calls)
	assert.Same(t, ok.result, ok.results[0])
	assert.Nil(t, ok.causes[0])

	w = serve(e, httptest.NewRequest(http.MethodGet, "/xsf/failing", nil))
	assert.False(t, decodeResult(t, w).Succeeded)
	assert.Zero(t, failing.calls)
}

func TestPipeline_RawJSONSuccess(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/raw", Method: http.MethodGet, CommandName: "raw"}, constant(map[string]int{"n": 1}))
	e, _ := f.engine(WithMarshaller(NewJSONMarshaller(config.MarshallerConfig{RawJSON: true}, nil)))

	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/raw", nil))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestPipeline_UpdatesUnloadedToGinKeys(t *testing.T) {
	f := newFixture()
	f.add(t, route.Route{URI: "/put", Method: http.MethodGet, CommandName: "put"},
		command.Func(func(ctx *command.Context) (*command.Result, error) {
			ctx.Put("audit", "written")
			return command.Success(ctx.Get("incoming")), nil
		}))
	p := New(f.table, f.registry)

	var seen any
	e := gin.New()
	e.Use(func(c *gin.Context) {
		c.Set("incoming", "from-middleware")
		c.Next()
		seen, _ = c.Get("audit")
	})
	e.Any("/xsf/*path", p.Handle)

	w := serve(e, httptest.NewRequest(http.MethodGet, "/xsf/put", nil))
	assert.Equal(t, "from-middleware", decodeResult(t, w).Data)
	assert.Equal(t, "written", seen)
}

func TestPipeline_SessionsAndApplication(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store.Sessions(), config.SessionConfig{CookieName: "SID", TTLMinutes: 5}, "/xsf", nil)

	f := newFixture()
	f.add(t, route.Route{URI: "/remember/{value}", Method: http.MethodPost, CommandName: "remember"},
		command.Func(func(ctx *command.Context) (*command.Result, error) {
			s, ok := session.From(ctx)
			require.True(t, ok)
			s.Set("remembered", ctx.String("value"))
			return command.Success(nil), nil
		}))
	f.add(t, route.Route{URI: "/recall", Method: http.MethodGet, CommandName: "recall"},
		command.Func(func(ctx *command.Context) (*command.Result, error) {
			return command.Success([]any{ctx.Get("remembered"), ctx.Get("app_name")}), nil
		}))
	e, _ := f.engine(
		WithSessions(manager),
		WithApplication(NewApplication(map[string]any{"app_name": "xsf"})),
	)

	w := serve(e, httptest.NewRequest(http.MethodPost, "/xsf/remember/blue", nil))
	require.True(t, decodeResult(t, w).Succeeded)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/xsf/recall", nil)
	req.AddCookie(cookies[0])
	w = serve(e, req)
	assert.Equal(t, []any{"blue", "xsf"}, decodeResult(t, w).Data)
}

func TestPipeline_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	f := newFixture()
	f.add(t, route.Route{URI: "/hello/{name}", Method: http.MethodGet, CommandName: "hello"}, constant("hi"))
	f.add(t, route.Route{URI: "/broken", Method: http.MethodGet, CommandName: "broken"},
		command.Func(func(*command.Context) (*command.Result, error) { return nil, errors.New("x") }))
	e, _ := f.engine(WithTracerProvider(tp))

	serve(e, httptest.NewRequest(http.MethodGet, "/xsf/hello/joe", nil))
	serve(e, httptest.NewRequest(http.MethodGet, "/xsf/missing", nil))
	serve(e, httptest.NewRequest(http.MethodGet, "/xsf/broken", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	for _, s := range spans {
		assert.Equal(t, "xsf.dispatch", s.Name())
	}

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "/hello/{name}", attrs["xsf.route"])
	assert.Equal(t, "hello", attrs["xsf.command"])
	assert.Equal(t, "/hello/joe", attrs["xsf.uri"])

	require.NotEmpty(t, spans[1].Events())
	assert.Equal(t, "route_not_found", spans[1].Events()[0].Name)

	assert.Equal(t, "Error", spans[2].Status().Code.String())
}

func TestPipeline_LogInOut(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	f := newFixture()
	f.add(t, route.Route{URI: "/hello", Method: http.MethodGet, CommandName: "hello"}, constant("x"))
	e, _ := f.engine(WithMarshaller(NewJSONMarshaller(config.MarshallerConfig{LogInOut: true}, logger)))

	serve(e, httptest.NewRequest(http.MethodGet, "/xsf/hello", nil))
	assert.Equal(t, 1, logs.FilterMessage("Received services request GET /hello").Len())
	assert.Equal(t, 1, logs.FilterMessage("Response body").Len())

	serve(e, httptest.NewRequest(http.MethodGet, "/xsf/absent", nil))
	notFound := logs.FilterMessage("Requested command not found").All()
	require.Len(t, notFound, 1)
	assert.Equal(t, zapcore.ErrorLevel, notFound[0].Level)
}

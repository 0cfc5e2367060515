package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

const expiresEpoch = "Thu, 01 Jan 1970 00:00:00 GMT"

// JSONMarshaller reads JSON or form-encoded bodies and writes JSON
// responses.
//
// By default every outcome is written as a command.Result with status 200
// so clients can handle failures uniformly. With RawJSON only the result
// data is written and authorization failures and exceptions become bare
// 403 and 500 responses. Route-not-found is always a bare 404.
type JSONMarshaller struct {
	rawJSON     bool
	logInOut    bool
	parseStatus int
	logger      *zap.Logger
}

// NewJSONMarshaller creates the default marshaller.
func NewJSONMarshaller(cfg config.MarshallerConfig, logger *zap.Logger) *JSONMarshaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	status := cfg.ParseFailureStatus
	if status == 0 {
		status = http.StatusOK
	}
	return &JSONMarshaller{
		rawJSON:     cfg.RawJSON,
		logInOut:    cfg.LogInOut,
		parseStatus: status,
		logger:      logger.Named("marshaller"),
	}
}

// FromRequest implements Deserializer. The decoded value is a pointer to
// a new value of target.
func (m *JSONMarshaller) FromRequest(ctx *command.Context, uri string, body []byte, target reflect.Type) ProcessedInput {
	req, _ := command.Find[*http.Request](ctx, command.KeyRequest)
	if m.logInOut && req != nil {
		m.logger.Debug(fmt.Sprintf("Received services request %s %s", req.Method, uri))
	}
	if body == nil || target == nil {
		return ProcessedInput{CanContinue: true}
	}
	if m.logInOut {
		m.logger.Debug("Request body", zap.ByteString("body", body))
	}

	value, err := decodeBody(req, body, target)
	if err != nil {
		m.logger.Error("Error parsing input", zap.String("uri", uri), zap.Error(err))
		if c, ok := GinContext(ctx); ok {
			c.JSON(m.parseStatus, command.Failuref(ParseFailureText, err.Error()))
		}
		return ProcessedInput{CanContinue: false}
	}
	return ProcessedInput{CanContinue: true, Data: value}
}

func decodeBody(req *http.Request, body []byte, target reflect.Type) (any, error) {
	ptr := reflect.New(target)

	if req != nil && strings.HasPrefix(req.Header.Get("Content-Type"), binding.MIMEPOSTForm) {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		if err := decodeForm(form, ptr.Interface()); err != nil {
			return nil, err
		}
		if binding.Validator != nil {
			if err := binding.Validator.ValidateStruct(ptr.Interface()); err != nil {
				return nil, err
			}
		}
		return ptr.Interface(), nil
	}

	if err := binding.JSON.BindBody(body, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// decodeForm maps form fields onto out. Repeated fields become slices and
// scalar strings are converted to the field's type.
func decodeForm(form url.Values, out any) error {
	input := make(map[string]any, len(form))
	for k, v := range form {
		if len(v) == 1 {
			input[k] = v[0]
		} else {
			input[k] = v
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// ToResponse implements Responder.
func (m *JSONMarshaller) ToResponse(ctx *command.Context, uri string, r *route.Route, result *command.Result) {
	c, ok := GinContext(ctx)
	if !ok {
		m.logger.Error("No response writer in context", zap.String("uri", uri))
		return
	}

	var payload any = result
	if m.rawJSON {
		payload = result.Data
	}
	if r == nil || !r.Cached {
		suppressCaching(c)
	}

	if !m.logInOut {
		c.JSON(http.StatusOK, payload)
		return
	}
	out, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("Error writing response", zap.String("uri", uri), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	m.logger.Debug("Response body", zap.ByteString("body", out))
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

// OnRouteNotFound implements Responder.
func (m *JSONMarshaller) OnRouteNotFound(ctx *command.Context, uri string) {
	m.logger.Error("Requested command not found", zap.String("uri", uri))
	if c, ok := GinContext(ctx); ok {
		c.Status(http.StatusNotFound)
	}
}

// OnException implements Responder. Validation errors surface their own
// message; anything else is reported with StandardErrorMessage.
func (m *JSONMarshaller) OnException(ctx *command.Context, uri string, r *route.Route, err error) {
	if m.rawJSON {
		if c, ok := GinContext(ctx); ok {
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	m.logger.Error("Exception on route", zap.String("uri", uri), zap.Error(err))
	message := StandardErrorMessage
	if ve, ok := command.AsValidation(err); ok {
		message = ve.Message
	}
	m.ToResponse(ctx, uri, r, command.Failure(message))
}

// OnAuthorizationFailure implements Responder.
func (m *JSONMarshaller) OnAuthorizationFailure(ctx *command.Context, uri string, r *route.Route) {
	if m.rawJSON {
		if c, ok := GinContext(ctx); ok {
			c.Status(http.StatusForbidden)
		}
		return
	}
	m.ToResponse(ctx, uri, r, command.Failuref(AuthorizationFailureText, uri))
}

func suppressCaching(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", expiresEpoch)
}

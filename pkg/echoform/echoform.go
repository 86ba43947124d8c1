package echoform

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-typedform/pkg/multipart"
	"github.com/goliatone/go-typedform/pkg/openapi"
)

const loggerKey = "echoform.logger"

// Extractor is satisfied by pointers to request extractors such as
// *typedform.TypedMultipart[T].
type Extractor[T any] interface {
	*T
	FromRequest(r *http.Request) error
}

// Middleware stores a multipart.Config built from opts in the request context
// so extractors downstream pick up the limits.
func Middleware(opts ...multipart.Option) echo.MiddlewareFunc {
	cfg := multipart.NewConfig(opts...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(multipart.WithConfig(req.Context(), cfg)))
			return next(c)
		}
	}
}

// UseLogger makes Handler log rejections to logger instead of the logrus
// standard logger.
func UseLogger(logger logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if logger != nil {
				c.Set(loggerKey, logger)
			}
			return next(c)
		}
	}
}

// Bind extracts T from the echo request. Rejections are returned unchanged.
func Bind[T any, PT Extractor[T]](c echo.Context) (T, error) {
	var value T
	if err := PT(&value).FromRequest(c.Request()); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// Handler adapts fn to an echo handler. Extraction failures become
// *echo.HTTPError values carrying the rejection's status code, with the
// rejection kept as the internal error.
func Handler[T any, PT Extractor[T]](fn func(echo.Context, T) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		value, err := Bind[T, PT](c)
		if err != nil {
			return reject(c, err)
		}
		return fn(c, value)
	}
}

// Route registers fn on e and documents it on api with T as the request
// input. api may be nil.
func Route[T any, PT Extractor[T]](e *echo.Echo, api *openapi.API, method, path string, fn func(echo.Context, T) error, opts ...openapi.OperationOption) *echo.Route {
	if api != nil {
		docOpts := append([]openapi.OperationOption{openapi.WithInput[T]()}, opts...)
		api.Operation(method, path, docOpts...)
	}
	return e.Add(method, path, Handler[T, PT](fn))
}

type statusCoder interface {
	StatusCode() int
}

func reject(c echo.Context, err error) error {
	status := http.StatusBadRequest
	var coded statusCoder
	if errors.As(err, &coded) {
		status = coded.StatusCode()
	}

	fields := logrus.Fields{
		"status": status,
		"method": c.Request().Method,
		"path":   c.Path(),
	}
	if rejection, ok := multipart.AsError(err); ok {
		fields["kind"] = rejection.Kind
		if rejection.Field != "" {
			fields["field"] = rejection.Field
		}
	}

	entry := loggerFrom(c).WithFields(fields).WithError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		entry.Error("multipart extraction failed")
		message = http.StatusText(status)
	} else {
		entry.Warn("multipart request rejected")
	}

	return echo.NewHTTPError(status, message).SetInternal(err)
}

func loggerFrom(c echo.Context) logrus.FieldLogger {
	if logger, ok := c.Get(loggerKey).(logrus.FieldLogger); ok {
		return logger
	}
	return logrus.StandardLogger()
}

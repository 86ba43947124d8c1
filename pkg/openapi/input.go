package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-typedform/pkg/schemagen"
)

// GenContext is the ambient state handed to OperationInput implementations.
type GenContext struct {
	Schema *schemagen.Generator
	Logger logrus.FieldLogger
}

// NewGenContext returns a context over g. A nil logger falls back to the
// logrus standard logger.
func NewGenContext(g *schemagen.Generator, logger logrus.FieldLogger) *GenContext {
	if g == nil {
		g = schemagen.NewGenerator()
	}
	return &GenContext{Schema: g, Logger: logger}
}

// ResolveSchema follows ref to its schema body. It returns nil when the ref
// cannot be resolved.
func (c *GenContext) ResolveSchema(ref *openapi3.SchemaRef) *openapi3.Schema {
	if c == nil || c.Schema == nil {
		if ref == nil {
			return nil
		}
		return ref.Value
	}
	return c.Schema.Resolve(ref)
}

func (c *GenContext) logger() logrus.FieldLogger {
	if c == nil || c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

// OperationInput is implemented by request extractors that can describe the
// part of the request they consume.
type OperationInput interface {
	OperationInput(ctx *GenContext, op *openapi3.Operation)
}

// InputOf documents T on op when T implements OperationInput. It reports
// whether anything was applied.
func InputOf[T any](ctx *GenContext, op *openapi3.Operation) bool {
	var zero T
	if input, ok := any(zero).(OperationInput); ok {
		input.OperationInput(ctx, op)
		return true
	}
	if input, ok := any(&zero).(OperationInput); ok {
		input.OperationInput(ctx, op)
		return true
	}
	return false
}

// SetBody sets the request body of op. An existing body is replaced.
func SetBody(ctx *GenContext, op *openapi3.Operation, body *openapi3.RequestBody) {
	if op == nil {
		return
	}
	if op.RequestBody != nil {
		ctx.logger().WithFields(logrus.Fields{
			"operation": op.OperationID,
			"component": "openapi",
		}).Warn("replacing existing request body")
	}
	op.RequestBody = &openapi3.RequestBodyRef{Value: body}
}

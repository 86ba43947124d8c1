package typedform

import (
	"context"
	"net/http"
	"reflect"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-typedform/pkg/multipart"
	"github.com/goliatone/go-typedform/pkg/openapi"
	"github.com/goliatone/go-typedform/pkg/schemagen"
)

// MediaType is the content type documented for TypedMultipart inputs.
const MediaType = "multipart/form-data"

// TypedMultipart is a multipart.TypedMultipart that documents itself as an
// OpenAPI request body. Data and the inner methods are promoted.
type TypedMultipart[T any] struct {
	multipart.TypedMultipart[T]
}

var (
	_ openapi.OperationInput     = TypedMultipart[struct{}]{}
	_ multipart.FieldUnmarshaler = (*FieldData[string])(nil)
	_ schemagen.Describer        = FieldData[string]{}
	_ schemagen.Namer            = FieldData[string]{}
	_ schemagen.Inliner          = FieldData[string]{}
	_ schemagen.Alias            = FieldData[string]{}
)

// FromRequest extracts T from r through multipart.TypedMultipart. Rejections
// are returned as produced, and m is left untouched on failure.
func (m *TypedMultipart[T]) FromRequest(r *http.Request) error {
	return m.TypedMultipart.FromRequest(r)
}

// Unwrap returns the inner extractor value.
func (m TypedMultipart[T]) Unwrap() multipart.TypedMultipart[T] {
	return m.TypedMultipart
}

// Extract is the generic form of FromRequest.
func Extract[T any](r *http.Request) (TypedMultipart[T], error) {
	var out TypedMultipart[T]
	if err := out.FromRequest(r); err != nil {
		return TypedMultipart[T]{}, err
	}
	return out, nil
}

// OperationInput sets op's request body to a required multipart/form-data
// body referencing the schema of T. The resolved schema's description, if
// any, becomes the body description. Repeated calls overwrite the body.
func (TypedMultipart[T]) OperationInput(ctx *openapi.GenContext, op *openapi3.Operation) {
	switch {
	case ctx == nil:
		ctx = openapi.NewGenContext(nil, nil)
	case ctx.Schema == nil:
		ctx = openapi.NewGenContext(nil, ctx.Logger)
	}

	ref := schemagen.SubschemaFor[T](ctx.Schema)

	var description string
	if schema := ctx.ResolveSchema(ref); schema != nil {
		description = schema.Description
	}

	body := openapi3.NewRequestBody().
		WithRequired(true).
		WithDescription(description).
		WithContent(openapi3.NewContentWithSchemaRef(ref, []string{MediaType}))
	openapi.SetBody(ctx, op, body)
}

// FieldData is a multipart.FieldData whose schema is that of T.
type FieldData[T any] struct {
	multipart.FieldData[T]
}

// UnmarshalField decodes field through multipart.FieldData with the same
// limit.
func (f *FieldData[T]) UnmarshalField(ctx context.Context, field *multipart.Field, limit int64) error {
	return f.FieldData.UnmarshalField(ctx, field, limit)
}

// Unwrap returns the inner field value.
func (f FieldData[T]) Unwrap() multipart.FieldData[T] {
	return f.FieldData
}

// SchemaName returns the schema name of T.
func (FieldData[T]) SchemaName() string {
	return schemagen.NameOf[T]()
}

// JSONSchema returns the schema body of T.
func (FieldData[T]) JSONSchema(g *schemagen.Generator) *openapi3.Schema {
	return schemagen.SchemaFor[T](g)
}

// InlineSchema follows T.
func (FieldData[T]) InlineSchema() bool {
	return schemagen.IsInline[T]()
}

// SchemaAlias makes the generator reference T's component directly.
func (FieldData[T]) SchemaAlias() reflect.Type {
	return reflect.TypeFor[T]()
}

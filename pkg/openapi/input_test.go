package openapi_test

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/goliatone/go-typedform/pkg/openapi"
	"github.com/goliatone/go-typedform/pkg/schemagen"
)

type payload struct {
	Title string `form:"title"`
}

type formInput struct{}

func (formInput) OperationInput(ctx *openapi.GenContext, op *openapi3.Operation) {
	ref := schemagen.SubschemaFor[payload](ctx.Schema)
	body := openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.NewContentWithSchemaRef(ref, []string{"multipart/form-data"}))
	openapi.SetBody(ctx, op, body)
}

type pointerInput struct{}

func (*pointerInput) OperationInput(ctx *openapi.GenContext, op *openapi3.Operation) {
	op.Summary = "pointer"
}

func TestInputOfAppliesImplementations(t *testing.T) {
	ctx := openapi.NewGenContext(nil, nil)

	op := openapi3.NewOperation()
	if !openapi.InputOf[formInput](ctx, op) {
		t.Fatalf("expected formInput to be applied")
	}
	if op.RequestBody == nil || op.RequestBody.Value.Content.Get("multipart/form-data") == nil {
		t.Fatalf("expected multipart request body, got %+v", op.RequestBody)
	}

	op = openapi3.NewOperation()
	if !openapi.InputOf[pointerInput](ctx, op) || op.Summary != "pointer" {
		t.Fatalf("expected pointer receiver input to be applied")
	}

	op = openapi3.NewOperation()
	if openapi.InputOf[string](ctx, op) {
		t.Fatalf("expected plain types to be ignored")
	}
	if op.RequestBody != nil {
		t.Fatalf("expected operation untouched")
	}
}

func TestSetBodyWarnsWhenReplacing(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := openapi.NewGenContext(nil, logger)
	op := openapi3.NewOperation()
	op.OperationID = "upload"

	first := openapi3.NewRequestBody().WithDescription("first")
	second := openapi3.NewRequestBody().WithDescription("second")

	openapi.SetBody(ctx, op, first)
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected no warning on first body")
	}

	openapi.SetBody(ctx, op, second)
	if op.RequestBody.Value != second {
		t.Fatalf("expected last body to win")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected warning, got %+v", entry)
	}
	if entry.Data["operation"] != "upload" {
		t.Fatalf("expected operation field, got %v", entry.Data)
	}
}

func TestResolveSchema(t *testing.T) {
	ctx := openapi.NewGenContext(nil, nil)
	ref := schemagen.SubschemaFor[payload](ctx.Schema)
	if ref.Ref == "" {
		t.Fatalf("expected payload to be registered as a component")
	}
	schema := ctx.ResolveSchema(ref)
	if schema == nil || schema.Properties["title"] == nil {
		t.Fatalf("expected resolved payload schema, got %+v", schema)
	}

	var empty *openapi.GenContext
	inline := openapi3.NewStringSchema()
	if got := empty.ResolveSchema(openapi3.NewSchemaRef("", inline)); got != inline {
		t.Fatalf("expected inline value without a generator")
	}
}

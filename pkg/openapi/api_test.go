package openapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-typedform/pkg/openapi"
	"github.com/goliatone/go-typedform/pkg/schemagen"
)

func newUploadAPI(opts ...openapi.Option) *openapi.API {
	api := openapi.NewAPI("Uploads", "1.0.0", opts...)
	api.Operation("post", "/uploads/:id",
		openapi.WithOperationID("createUpload"),
		openapi.WithSummary("Create an upload"),
		openapi.WithTags("uploads"),
		openapi.WithInput[formInput](),
		openapi.WithResponse(http.StatusCreated, "Created"),
		openapi.WithResponse(http.StatusRequestEntityTooLarge, ""),
	)
	api.Operation(http.MethodGet, "/health")
	return api
}

func TestDocumentAssemblesOperations(t *testing.T) {
	api := newUploadAPI(
		openapi.WithServer("http://localhost:8080"),
		openapi.WithDescription("Upload service"),
	)

	doc, err := api.Document(context.Background())
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	if doc.OpenAPI != openapi.Version || doc.Info.Description != "Upload service" {
		t.Fatalf("unexpected header: %s %+v", doc.OpenAPI, doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Fatalf("unexpected servers: %+v", doc.Servers)
	}

	item := doc.Paths.Value("/uploads/{id}")
	if item == nil || item.Post == nil {
		t.Fatalf("expected POST /uploads/{id}, got %v", doc.Paths.InMatchingOrder())
	}
	op := item.Post
	if op.OperationID != "createUpload" || op.Summary != "Create an upload" {
		t.Fatalf("unexpected operation: %+v", op)
	}
	if diff := cmp.Diff([]string{"uploads"}, op.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}

	if len(op.Parameters) != 1 || op.Parameters[0].Value.Name != "id" || op.Parameters[0].Value.In != "path" {
		t.Fatalf("expected id path parameter, got %+v", op.Parameters)
	}

	media := op.RequestBody.Value.Content.Get("multipart/form-data")
	if media == nil || media.Schema.Ref != schemagen.ComponentsPrefix+"payload" {
		t.Fatalf("expected payload ref, got %+v", media)
	}
	if media.Schema.Value == nil {
		t.Fatalf("expected loader to resolve the component ref")
	}
	if _, ok := doc.Components.Schemas["payload"]; !ok {
		t.Fatalf("expected payload component")
	}

	if got := op.Responses.Status(http.StatusCreated); got == nil || *got.Value.Description != "Created" {
		t.Fatalf("expected 201 response, got %+v", got)
	}
	if got := op.Responses.Status(http.StatusRequestEntityTooLarge); got == nil || *got.Value.Description != "Request Entity Too Large" {
		t.Fatalf("expected 413 response with status text, got %+v", got)
	}

	health := doc.Paths.Value("/health")
	if health == nil || health.Get == nil {
		t.Fatalf("expected GET /health")
	}
	if got := health.Get.Responses.Status(http.StatusOK); got == nil || *got.Value.Description != "OK" {
		t.Fatalf("expected default 200 response, got %+v", got)
	}
}

func TestOperationReplacesDuplicates(t *testing.T) {
	logger, hook := test.NewNullLogger()
	api := openapi.NewAPI("Uploads", "1.0.0", openapi.WithLogger(logger))

	api.Operation(http.MethodPost, "/uploads", openapi.WithSummary("first"))
	api.Operation(http.MethodPost, "/uploads", openapi.WithSummary("second"))

	doc, err := api.Document(context.Background())
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if got := doc.Paths.Value("/uploads").Post.Summary; got != "second" {
		t.Fatalf("expected last operation to win, got %q", got)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected replacement warning, got %+v", entry)
	}
}

func TestHandlerServesJSONAndYAML(t *testing.T) {
	handler := newUploadAPI().Handler()

	cases := []struct {
		name        string
		target      string
		contentType string
		decode      func([]byte, any) error
	}{
		{name: "json", target: "/openapi", contentType: "application/json", decode: json.Unmarshal},
		{name: "yaml", target: "/openapi?format=yaml", contentType: "application/yaml", decode: yaml.Unmarshal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d (%s)", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tc.contentType {
				t.Fatalf("content type: want %s, got %s", tc.contentType, got)
			}

			var decoded map[string]any
			if err := tc.decode(rec.Body.Bytes(), &decoded); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded["openapi"] != openapi.Version {
				t.Fatalf("expected openapi version, got %v", decoded["openapi"])
			}
			paths, _ := decoded["paths"].(map[string]any)
			if _, ok := paths["/uploads/{id}"]; !ok {
				t.Fatalf("expected upload path, got %v", paths)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	if _, err := openapi.Validate(ctx, nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := openapi.Validate(ctx, []byte(`{"openapi":"3.0.3","info":{"title":"x"},"paths":{}}`)); err == nil {
		t.Fatalf("expected error for missing info.version")
	}

	doc, err := openapi.Validate(ctx, []byte("openapi: 3.0.3\ninfo:\n  title: x\n  version: 1.0.0\npaths: {}\n"))
	if err != nil {
		t.Fatalf("validate yaml document: %v", err)
	}
	if doc.Info.Title != "x" {
		t.Fatalf("unexpected title %q", doc.Info.Title)
	}
}

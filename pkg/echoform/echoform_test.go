package echoform_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	typedform "github.com/goliatone/go-typedform"
	"github.com/goliatone/go-typedform/pkg/echoform"
	"github.com/goliatone/go-typedform/pkg/multipart"
	"github.com/goliatone/go-typedform/pkg/openapi"
	"github.com/goliatone/go-typedform/pkg/testsupport"
)

type note struct {
	Title string                      `form:"title"`
	Body  typedform.FieldData[string] `form:"body"`
}

func newServer(t *testing.T, opts ...multipart.Option) (*echo.Echo, *openapi.API, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	e := echo.New()
	e.Use(echoform.Middleware(opts...), echoform.UseLogger(logger))

	api := openapi.NewAPI("Notes", "1.0.0", openapi.WithLogger(logger))
	echoform.Route(e, api, http.MethodPost, "/notes/:id",
		func(c echo.Context, in typedform.TypedMultipart[note]) error {
			return c.JSON(http.StatusCreated, map[string]string{
				"id":    c.Param("id"),
				"title": in.Data.Title,
				"body":  in.Data.Body.Contents,
			})
		},
		openapi.WithOperationID("createNote"),
		openapi.WithResponse(http.StatusCreated, "Created"),
	)
	return e, api, hook
}

func TestRouteDecodesMultipartBody(t *testing.T) {
	e, _, hook := newServer(t)

	req := testsupport.NewMultipartRequest(t, "/notes/7",
		testsupport.Text("title", "Groceries"),
		testsupport.File("body", "note.txt", "text/plain", []byte("milk")),
	)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d (%s)", rec.Code, rec.Body.String())
	}
	for _, want := range []string{`"id":"7"`, `"title":"Groceries"`, `"body":"milk"`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("expected %s in %s", want, rec.Body.String())
		}
	}
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected no log entries, got %d", len(hook.AllEntries()))
	}
}

func TestRouteTranslatesRejections(t *testing.T) {
	cases := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		wantStatus int
		wantKind   multipart.ErrorKind
		wantText   string
	}{
		{
			name: "missing field",
			request: func(t *testing.T) *http.Request {
				return testsupport.NewMultipartRequest(t, "/notes/1", testsupport.Text("body", "x"))
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   multipart.KindMissingField,
			wantText:   "field 'title' is required",
		},
		{
			name: "field over configured limit",
			request: func(t *testing.T) *http.Request {
				return testsupport.NewMultipartRequest(t, "/notes/1",
					testsupport.Text("title", "ok"),
					testsupport.Text("body", strings.Repeat("x", 17)),
				)
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantKind:   multipart.KindFieldTooLarge,
			wantText:   "field 'body' is larger than 16 bytes",
		},
		{
			name: "not multipart",
			request: func(*testing.T) *http.Request {
				return testsupport.NewRawRequest("/notes/1", echo.MIMEApplicationJSON, `{}`)
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   multipart.KindInvalidRequest,
			wantText:   "request is malformed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _, hook := newServer(t, multipart.WithDefaultFieldLimit(16))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, tc.request(t))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want %d, got %d (%s)", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.wantText) {
				t.Fatalf("body: want %q in %s", tc.wantText, rec.Body.String())
			}

			entry := hook.LastEntry()
			if entry == nil || entry.Level != logrus.WarnLevel {
				t.Fatalf("expected a warning, got %+v", entry)
			}
			if entry.Data["kind"] != tc.wantKind || entry.Data["status"] != tc.wantStatus {
				t.Fatalf("unexpected log fields %v", entry.Data)
			}
		})
	}
}

func TestHandlerKeepsRejectionAsInternalError(t *testing.T) {
	e := echo.New()
	req := testsupport.NewRawRequest("/notes", "text/plain", "x")
	c := e.NewContext(req, httptest.NewRecorder())

	handler := echoform.Handler(func(echo.Context, typedform.TypedMultipart[note]) error {
		t.Fatalf("handler must not run on rejection")
		return nil
	})

	err := handler(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", httpErr.Code)
	}
	if _, ok := multipart.AsError(httpErr.Internal); !ok {
		t.Fatalf("expected internal rejection, got %v", httpErr.Internal)
	}
}

func TestBindReturnsRejectionUnchanged(t *testing.T) {
	e := echo.New()
	req := testsupport.NewMultipartRequest(t, "/notes", testsupport.Text("body", "x"))
	c := e.NewContext(req, httptest.NewRecorder())

	_, err := echoform.Bind[typedform.TypedMultipart[note]](c)
	rejection, ok := multipart.AsError(err)
	if !ok || rejection.Kind != multipart.KindMissingField || rejection.Field != "title" {
		t.Fatalf("expected missing title rejection, got %v", err)
	}
}

func TestRouteDocumentsOperation(t *testing.T) {
	_, api, _ := newServer(t)

	doc, err := api.Document(context.Background())
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	op := doc.Paths.Value("/notes/{id}").Post
	if op == nil || op.OperationID != "createNote" {
		t.Fatalf("expected documented createNote operation, got %+v", op)
	}
	if op.RequestBody == nil || !op.RequestBody.Value.Required {
		t.Fatalf("expected required request body")
	}
	if op.RequestBody.Value.Content.Get(typedform.MediaType) == nil {
		t.Fatalf("expected multipart content")
	}
}

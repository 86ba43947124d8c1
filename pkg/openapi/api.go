package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-typedform/pkg/schemagen"
)

// Version is the OpenAPI version emitted by Document.
const Version = "3.0.3"

// API collects documented operations. It is safe for concurrent use.
type API struct {
	title       string
	version     string
	description string
	servers     []string
	logger      logrus.FieldLogger
	gen         *GenContext

	mu         sync.Mutex
	operations []*route
}

type route struct {
	method string
	path   string
	op     *openapi3.Operation
}

// Option configures an API.
type Option func(*API)

// WithLogger routes warnings emitted while documenting operations.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithServer appends a server URL to the document.
func WithServer(url string) Option {
	return func(a *API) {
		if url = strings.TrimSpace(url); url != "" {
			a.servers = append(a.servers, url)
		}
	}
}

// WithDescription sets info.description.
func WithDescription(description string) Option {
	return func(a *API) {
		a.description = description
	}
}

// NewAPI returns an empty API document builder.
func NewAPI(title, version string, opts ...Option) *API {
	a := &API{
		title:   title,
		version: version,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.gen = NewGenContext(schemagen.NewGenerator(), a.logger)
	return a
}

// GenContext returns the context operations are documented with.
func (a *API) GenContext() *GenContext {
	return a.gen
}

type operationConfig struct {
	id        string
	summary   string
	tags      []string
	inputs    []func(*GenContext, *openapi3.Operation)
	responses []response
}

type response struct {
	status      int
	description string
}

// OperationOption configures one documented operation.
type OperationOption func(*operationConfig)

// WithOperationID sets operationId.
func WithOperationID(id string) OperationOption {
	return func(cfg *operationConfig) {
		cfg.id = id
	}
}

// WithSummary sets the operation summary.
func WithSummary(summary string) OperationOption {
	return func(cfg *operationConfig) {
		cfg.summary = summary
	}
}

// WithTags appends tags.
func WithTags(tags ...string) OperationOption {
	return func(cfg *operationConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// WithInput documents the request input T through InputOf.
func WithInput[T any]() OperationOption {
	return func(cfg *operationConfig) {
		cfg.inputs = append(cfg.inputs, func(ctx *GenContext, op *openapi3.Operation) {
			InputOf[T](ctx, op)
		})
	}
}

// WithResponse documents a response status.
func WithResponse(status int, description string) OperationOption {
	return func(cfg *operationConfig) {
		cfg.responses = append(cfg.responses, response{status: status, description: description})
	}
}

// Operation documents method and path. Echo style ":name" segments are
// rewritten to "{name}" and declared as path parameters. Registering the
// same method and path again replaces the earlier operation.
func (a *API) Operation(method, path string, opts ...OperationOption) *openapi3.Operation {
	cfg := operationConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	path, params := normalizePath(path)

	op := openapi3.NewOperation()
	op.OperationID = cfg.id
	op.Summary = cfg.summary
	op.Tags = cfg.tags
	for _, name := range params {
		op.AddParameter(openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()))
	}
	for _, input := range cfg.inputs {
		input(a.gen, op)
	}

	if len(cfg.responses) == 0 {
		cfg.responses = []response{{status: http.StatusOK, description: http.StatusText(http.StatusOK)}}
	}
	responseOpts := make([]openapi3.NewResponsesOption, 0, len(cfg.responses))
	for _, resp := range cfg.responses {
		description := resp.description
		if description == "" {
			description = http.StatusText(resp.status)
		}
		responseOpts = append(responseOpts, openapi3.WithStatus(resp.status, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(description),
		}))
	}
	op.Responses = openapi3.NewResponses(responseOpts...)

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.operations {
		if existing.method == method && existing.path == path {
			a.logger.WithFields(logrus.Fields{
				"method":    method,
				"path":      path,
				"component": "openapi",
			}).Warn("replacing documented operation")
			a.operations[i].op = op
			return op
		}
	}
	a.operations = append(a.operations, &route{method: method, path: path, op: op})
	return op
}

// Document assembles and validates the OpenAPI document. Component refs are
// resolved by round-tripping through the kin-openapi loader. Types the
// generator could not document fail the whole document.
func (a *API) Document(ctx context.Context) (*openapi3.T, error) {
	if err := a.gen.Schema.Err(); err != nil {
		return nil, fmt.Errorf("openapi: generate schemas: %w", err)
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       a.title,
			Version:     a.version,
			Description: a.description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: a.gen.Schema.Components(),
		},
	}
	for _, url := range a.servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}

	a.mu.Lock()
	for _, r := range a.operations {
		item := doc.Paths.Value(r.path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(r.path, item)
		}
		item.SetOperation(r.method, r.op)
	}
	a.mu.Unlock()

	raw, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal document: %w", err)
	}
	return Validate(ctx, raw)
}

// MarshalJSON renders doc as indented JSON.
func MarshalJSON(doc *openapi3.T) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: encode json: %w", err)
	}
	return out, nil
}

// MarshalYAML renders doc as YAML.
func MarshalYAML(doc *openapi3.T) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi: encode yaml: %w", err)
	}
	return out, nil
}

// Handler serves the document as JSON, or YAML when the query string carries
// format=yaml.
func (a *API) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, err := a.Document(r.Context())
		if err != nil {
			a.logger.WithError(err).Error("openapi: build document")
			http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
			return
		}

		contentType := "application/json"
		encode := MarshalJSON
		if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
			contentType = "application/yaml"
			encode = MarshalYAML
		}

		payload, err := encode(doc)
		if err != nil {
			a.logger.WithError(err).Error("openapi: encode document")
			http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(payload)
	})
}

func normalizePath(path string) (string, []string) {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	segments := strings.Split(path, "/")
	var params []string
	for i, segment := range segments {
		switch {
		case strings.HasPrefix(segment, ":") && len(segment) > 1:
			name := segment[1:]
			segments[i] = "{" + name + "}"
			params = append(params, name)
		case strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") && len(segment) > 2:
			params = append(params, segment[1:len(segment)-1])
		}
	}
	return strings.Join(segments, "/"), params
}

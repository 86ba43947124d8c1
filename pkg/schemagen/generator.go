package schemagen

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/goliatone/go-typedform/pkg/multipart"
)

// ComponentsPrefix is the ref prefix of registered schemas.
const ComponentsPrefix = "#/components/schemas/"

// Namer overrides the component name of a type.
type Namer interface {
	SchemaName() string
}

// Describer supplies the full schema body of a type.
type Describer interface {
	JSONSchema(g *Generator) *openapi3.Schema
}

// Inliner controls whether a type is embedded in place instead of being
// registered as a component.
type Inliner interface {
	InlineSchema() bool
}

// Alias is implemented by wrappers that document as another type. The
// generator registers and references the aliased type in their place.
type Alias interface {
	SchemaAlias() reflect.Type
}

// DescriptionProvider attaches a description to reflected struct schemas.
type DescriptionProvider interface {
	SchemaDescription() string
}

// Generator reflects Go types into OpenAPI schemas and keeps the registry of
// named component schemas. It is safe for concurrent use: a component body
// is built by the first caller, and Resolve and Components wait for bodies
// still being built. A Describer must therefore not call either of them for
// a type it is part of.
type Generator struct {
	mu         sync.Mutex
	components map[string]*component
	names      map[reflect.Type]string
	owners     map[string]reflect.Type
	failed     map[reflect.Type]bool
	errs       []error
}

type component struct {
	ref   *openapi3.SchemaRef
	ready chan struct{}
}

// NewGenerator returns an empty generator.
func NewGenerator() *Generator {
	return &Generator{
		components: make(map[string]*component),
		names:      make(map[reflect.Type]string),
		owners:     make(map[string]reflect.Type),
		failed:     make(map[reflect.Type]bool),
	}
}

// Components returns a copy of the registered component schemas.
func (g *Generator) Components() openapi3.Schemas {
	g.mu.Lock()
	registered := make(map[string]*component, len(g.components))
	for name, c := range g.components {
		registered[name] = c
	}
	g.mu.Unlock()

	out := make(openapi3.Schemas, len(registered))
	for name, c := range registered {
		<-c.ready
		if c.ref != nil {
			out[name] = c.ref
		}
	}
	return out
}

// Err reports the types that could not be documented, for example struct
// fields the multipart decoder cannot fill.
func (g *Generator) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}

func (g *Generator) fail(t reflect.Type, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed[t] {
		return
	}
	g.failed[t] = true
	g.errs = append(g.errs, fmt.Errorf("schemagen: %s: %w", t, err))
}

// NameOf returns the schema name of T.
func NameOf[T any]() string {
	return Name(reflect.TypeFor[T]())
}

// IsInline reports whether T is always embedded in place.
func IsInline[T any]() bool {
	return Inline(reflect.TypeFor[T]())
}

// SchemaFor returns the schema body of T.
func SchemaFor[T any](g *Generator) *openapi3.Schema {
	return g.SchemaFor(reflect.TypeFor[T]())
}

// SubschemaFor returns a reference to T, registering it when needed.
func SubschemaFor[T any](g *Generator) *openapi3.SchemaRef {
	return g.SubschemaFor(reflect.TypeFor[T]())
}

// Name returns the schema name of t: Namer first, then the Go type name with
// generic arguments folded in. Unnamed types have an empty name.
func Name(t reflect.Type) string {
	if namer, ok := zeroAs[Namer](t); ok {
		return strings.TrimSpace(namer.SchemaName())
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return typeName(t)
}

// Inline reports whether t is embedded in place rather than referenced.
func Inline(t reflect.Type) bool {
	if inliner, ok := zeroAs[Inliner](t); ok {
		return inliner.InlineSchema()
	}
	if _, ok := zeroAs[Describer](t); ok {
		return false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType || t.Name() == "" {
		return true
	}
	if t.Kind() == reflect.Struct {
		return false
	}
	return !selfReferencing(t)
}

// selfReferencing reports whether the container type t reaches itself through
// element types alone. Such types are registered so the $ref breaks the cycle.
func selfReferencing(t reflect.Type) bool {
	seen := make(map[reflect.Type]bool)
	cur := t
	for {
		switch cur.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		default:
			return false
		}
		cur = cur.Elem()
		if cur == t {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
	}
}

// SchemaFor returns the schema body of t. Nested named types are registered as
// components and referenced.
func (g *Generator) SchemaFor(t reflect.Type) *openapi3.Schema {
	if describer, ok := zeroAs[Describer](t); ok {
		if schema := describer.JSONSchema(g); schema != nil {
			return schema
		}
	}
	return g.reflectSchema(t)
}

// SubschemaFor returns an inline schema for inline or unnamed types, otherwise
// registers the schema body under its name (once) and returns a $ref. Alias
// types are replaced by their target first.
func (g *Generator) SubschemaFor(t reflect.Type) *openapi3.SchemaRef {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if alias, ok := zeroAs[Alias](t); ok {
		if target := alias.SchemaAlias(); target != nil && target != t {
			return g.SubschemaFor(target)
		}
	}
	if Inline(t) || Name(t) == "" {
		return openapi3.NewSchemaRef("", g.SchemaFor(t))
	}

	c, name, fresh := g.reserve(t)
	ref := ComponentsPrefix + name
	if !fresh {
		return openapi3.NewSchemaRef(ref, nil)
	}

	defer close(c.ready)
	c.ref = openapi3.NewSchemaRef("", g.SchemaFor(t))
	return openapi3.NewSchemaRef(ref, nil)
}

// Resolve follows ref through the registry. Inline refs return their value;
// unknown refs return nil.
func (g *Generator) Resolve(ref *openapi3.SchemaRef) *openapi3.Schema {
	seen := make(map[string]struct{})
	for ref != nil {
		if ref.Ref == "" {
			return ref.Value
		}
		if _, loop := seen[ref.Ref]; loop {
			return nil
		}
		seen[ref.Ref] = struct{}{}

		name, ok := strings.CutPrefix(ref.Ref, ComponentsPrefix)
		if !ok {
			return ref.Value
		}
		g.mu.Lock()
		c := g.components[name]
		g.mu.Unlock()
		if c == nil {
			return nil
		}
		<-c.ready
		ref = c.ref
	}
	return nil
}

// reserve claims a component name for t. fresh is false when t already has
// one, which also terminates recursion for self-referencing types. The
// caller that gets fresh must close the component's ready channel.
func (g *Generator) reserve(t reflect.Type) (*component, string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if name, ok := g.names[t]; ok {
		return g.components[name], name, false
	}

	base := Name(t)
	name := base
	for i := 2; ; i++ {
		owner, taken := g.owners[name]
		if !taken || owner == t {
			break
		}
		name = base + strconv.Itoa(i)
	}
	c := &component{ready: make(chan struct{})}
	g.names[t] = name
	g.owners[name] = t
	g.components[name] = c
	return c, name, true
}

var (
	timeType            = reflect.TypeOf(time.Time{})
	bytesType           = reflect.TypeOf([]byte(nil))
	htmlType            = reflect.TypeOf(multipart.SanitizedHTML(""))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

func (g *Generator) reflectSchema(t reflect.Type) *openapi3.Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch {
	case t == bytesType:
		return openapi3.NewStringSchema().WithFormat("binary")
	case t == htmlType:
		return openapi3.NewStringSchema().WithFormat("html")
	case t == timeType, isScalar(t):
		return scalarSchema(t, nil)
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		schema := openapi3.NewArraySchema()
		schema.Items = g.SubschemaFor(t.Elem())
		return schema
	case reflect.Map:
		schema := openapi3.NewObjectSchema()
		if t.Key().Kind() == reflect.String {
			has := true
			schema.AdditionalProperties = openapi3.AdditionalProperties{
				Has:    &has,
				Schema: g.SubschemaFor(t.Elem()),
			}
		}
		return schema
	case reflect.Struct:
		return g.structSchema(t)
	default:
		return &openapi3.Schema{}
	}
}

func (g *Generator) structSchema(t reflect.Type) *openapi3.Schema {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return openapi3.NewStringSchema()
	}

	schema := openapi3.NewObjectSchema()
	if provider, ok := zeroAs[DescriptionProvider](t); ok {
		schema.Description = provider.SchemaDescription()
	}

	specs, err := multipart.StructFields(t)
	if err != nil {
		g.fail(t, err)
		return schema
	}
	for _, spec := range specs {
		property := g.propertySchema(spec)
		schema.Properties[spec.Name] = property
		if spec.Required {
			schema.Required = append(schema.Required, spec.Name)
		}
	}
	return schema
}

// scalarSchema maps a scalar kind (or time.Time) through openapi3gen.
func scalarSchema(t reflect.Type, customize openapi3gen.SchemaCustomizerFn) *openapi3.Schema {
	var opts []openapi3gen.Option
	if customize != nil {
		opts = append(opts, openapi3gen.SchemaCustomizer(customize))
	}
	ref, err := openapi3gen.NewGenerator(opts...).GenerateSchemaRef(t)
	if err != nil || ref == nil || ref.Value == nil {
		return &openapi3.Schema{}
	}
	return ref.Value
}

func isScalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// scalarLeaf returns the scalar type a property (or each of its repeated
// values) decodes into, when its schema is plain reflection.
func scalarLeaf(spec multipart.FieldSpec) (reflect.Type, bool) {
	t := spec.Type
	if spec.Repeated {
		t = t.Elem()
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == htmlType || !isScalar(t) || !Inline(t) {
		return nil, false
	}
	if _, ok := zeroAs[Describer](t); ok {
		return nil, false
	}
	if _, ok := zeroAs[Alias](t); ok {
		return nil, false
	}
	return t, true
}

// tagCustomizer applies the enum and description tags of spec. Repeated
// fields carry the description on the array, not on each value.
func tagCustomizer(spec multipart.FieldSpec) openapi3gen.SchemaCustomizerFn {
	return func(_ string, _ reflect.Type, _ reflect.StructTag, schema *openapi3.Schema) error {
		for _, value := range spec.Enum {
			schema.Enum = append(schema.Enum, enumValue(schema, value))
		}
		if !spec.Repeated && spec.Description != "" {
			schema.Description = spec.Description
		}
		return nil
	}
}

func (g *Generator) propertySchema(spec multipart.FieldSpec) *openapi3.SchemaRef {
	if leaf, ok := scalarLeaf(spec); ok {
		value := scalarSchema(leaf, tagCustomizer(spec))
		if !spec.Repeated {
			return openapi3.NewSchemaRef("", value)
		}
		array := openapi3.NewArraySchema()
		array.Items = openapi3.NewSchemaRef("", value)
		array.Description = spec.Description
		return openapi3.NewSchemaRef("", array)
	}

	ref := g.SubschemaFor(spec.Type)
	if spec.Description == "" && len(spec.Enum) == 0 {
		return ref
	}
	if ref.Ref != "" {
		// Annotations cannot sit next to $ref in 3.0, so wrap it.
		wrapped := &openapi3.Schema{
			AllOf:       openapi3.SchemaRefs{ref},
			Description: spec.Description,
		}
		return openapi3.NewSchemaRef("", wrapped)
	}

	property := *ref.Value
	target := &property
	if spec.Repeated && property.Items != nil && property.Items.Value != nil {
		items := *property.Items.Value
		property.Items = openapi3.NewSchemaRef("", &items)
		target = &items
	}
	if spec.Description != "" {
		property.Description = spec.Description
	}
	for _, value := range spec.Enum {
		target.Enum = append(target.Enum, enumValue(target, value))
	}
	return openapi3.NewSchemaRef("", &property)
}

func enumValue(schema *openapi3.Schema, raw string) any {
	switch {
	case schema.Type.Is(openapi3.TypeInteger), schema.Type.Is(openapi3.TypeNumber):
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			return parsed
		}
	case schema.Type.Is(openapi3.TypeBoolean):
		if parsed, err := strconv.ParseBool(raw); err == nil {
			return parsed
		}
	}
	return raw
}

// zeroAs checks whether the zero value of t, or a pointer to it, implements I.
func zeroAs[I any](t reflect.Type) (I, bool) {
	var none I
	if t == nil {
		return none, false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return none, false
	}
	if impl, ok := reflect.Zero(t).Interface().(I); ok {
		return impl, true
	}
	if impl, ok := reflect.New(t).Interface().(I); ok {
		return impl, true
	}
	return none, false
}

var (
	typeQualifier = regexp.MustCompile(`(?:[\w\-.]+/)*[\w\-]+\.`)
	nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// typeName folds generic arguments into the name: Page[pkg.Item] becomes
// Page_Item.
func typeName(t reflect.Type) string {
	name := t.Name()
	if !strings.Contains(name, "[") {
		return name
	}
	name = typeQualifier.ReplaceAllString(name, "")
	name = nonIdentifier.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

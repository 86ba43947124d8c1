package multipart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"slices"

	stdmultipart "mime/multipart"
)

const formDataMediaType = "multipart/form-data"

// TypedMultipart holds a struct decoded from a multipart/form-data request.
type TypedMultipart[T any] struct {
	Data T
}

// FromRequest decodes r into m.Data using the Config found in the request
// context. m is left untouched on failure.
func (m *TypedMultipart[T]) FromRequest(r *http.Request) error {
	var data T
	if err := Decode(r, &data); err != nil {
		return err
	}
	m.Data = data
	return nil
}

// Extract decodes r into a TypedMultipart[T].
func Extract[T any](r *http.Request) (TypedMultipart[T], error) {
	var out TypedMultipart[T]
	if err := out.FromRequest(r); err != nil {
		return TypedMultipart[T]{}, err
	}
	return out, nil
}

// Decode streams the multipart body of r into dst, which must be a non-nil
// pointer to a struct. Every failure is returned as *Error.
func Decode(r *http.Request, dst any) error {
	if r == nil {
		return &Error{Kind: KindInvalidRequest, Err: errors.New("request is nil")}
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return other(fmt.Errorf("multipart: decode target must be a non-nil struct pointer, got %T", dst))
	}

	specs, err := StructFields(rv.Elem().Type())
	if err != nil {
		return other(err)
	}

	ctx := r.Context()
	cfg := ConfigFrom(ctx)

	reader, body, rejection := newReader(r, cfg)
	if rejection != nil {
		return rejection
	}

	d := &decoder{
		cfg:    cfg,
		target: rv.Elem(),
		byName: make(map[string]*FieldSpec, len(specs)),
		seen:   make(map[string]bool, len(specs)),
	}
	for i := range specs {
		d.byName[specs[i].Name] = &specs[i]
	}

	for {
		if err := ctx.Err(); err != nil {
			return other(err)
		}
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return body.classify(bodyError(err))
		}

		err = d.decodePart(ctx, fieldFromPart(part))
		_ = part.Close()
		if err != nil {
			return body.classify(err)
		}
	}

	for _, spec := range specs {
		if spec.Required && !d.seen[spec.Name] {
			return missingField(spec.Name)
		}
	}
	return nil
}

func newReader(r *http.Request, cfg Config) (*stdmultipart.Reader, *limitedBody, *Error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, &Error{Kind: KindInvalidRequest, Err: http.ErrNotMultipart}
	}
	if mediaType != formDataMediaType {
		return nil, nil, &Error{Kind: KindInvalidRequest, Err: http.ErrNotMultipart}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, nil, &Error{Kind: KindInvalidRequest, Err: http.ErrMissingBoundary}
	}

	var body io.ReadCloser = http.NoBody
	if r.Body != nil {
		body = r.Body
	}
	if cfg.MaxRequestBytes > NoLimit {
		body = http.MaxBytesReader(nil, body, cfg.MaxRequestBytes)
	}
	limited := &limitedBody{r: body}
	return stdmultipart.NewReader(limited, boundary), limited, nil
}

// limitedBody remembers whether the request size cap tripped, since
// mime/multipart does not always preserve the underlying error.
type limitedBody struct {
	r       io.Reader
	tripped bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	var maxBytes *http.MaxBytesError
	if err != nil && errors.As(err, &maxBytes) {
		b.tripped = true
	}
	return n, err
}

func (b *limitedBody) classify(err error) error {
	if err == nil || !b.tripped {
		return err
	}
	if rejection, ok := AsError(err); ok && rejection.Kind == KindInvalidRequestBody {
		rejection.BodyTooLarge = true
	}
	return err
}

type decoder struct {
	cfg    Config
	target reflect.Value
	byName map[string]*FieldSpec
	seen   map[string]bool
}

func (d *decoder) decodePart(ctx context.Context, field *Field) error {
	if field.Name == "" {
		return &Error{Kind: KindNamelessField}
	}

	spec, ok := d.byName[field.Name]
	if !ok {
		if d.cfg.Strict {
			return unknownField(field.Name)
		}
		return field.drain()
	}
	if d.seen[spec.Name] && !spec.Repeated && d.cfg.Strict {
		return duplicateField(spec.Name)
	}

	limit := d.cfg.DefaultFieldLimit
	if spec.HasLimit {
		limit = spec.Limit
	}

	dest := d.target.FieldByIndex(spec.Index)
	if spec.Repeated {
		elem := reflect.New(dest.Type().Elem()).Elem()
		if err := DecodeFieldValue(ctx, field, limit, elem); err != nil {
			return err
		}
		if err := checkEnum(spec, elem); err != nil {
			return err
		}
		dest.Set(reflect.Append(dest, elem))
	} else {
		fresh := reflect.New(dest.Type()).Elem()
		if err := DecodeFieldValue(ctx, field, limit, fresh); err != nil {
			return err
		}
		if err := checkEnum(spec, fresh); err != nil {
			return err
		}
		dest.Set(fresh)
	}

	d.seen[spec.Name] = true
	return nil
}

func checkEnum(spec *FieldSpec, v reflect.Value) error {
	if len(spec.Enum) == 0 {
		return nil
	}
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	var value string
	if v.Kind() == reflect.String {
		value = v.String()
	} else {
		value = fmt.Sprint(v.Interface())
	}
	if slices.Contains(spec.Enum, value) {
		return nil
	}
	return invalidEnumValue(spec.Name, value)
}

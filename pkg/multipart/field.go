package multipart

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/textproto"
	"strings"
	"unicode/utf8"

	stdmultipart "mime/multipart"
)

// Field is a single part of a multipart stream. Its body can be consumed once.
type Field struct {
	Name        string
	FileName    string
	ContentType string
	Header      textproto.MIMEHeader

	body io.Reader
}

// FieldMetadata describes a field without its contents.
type FieldMetadata struct {
	Name        string               `json:"name"`
	FileName    string               `json:"fileName,omitempty"`
	ContentType string               `json:"contentType,omitempty"`
	Headers     textproto.MIMEHeader `json:"headers,omitempty"`
}

// FieldData pairs the decoded contents of a field with its metadata.
type FieldData[T any] struct {
	Metadata FieldMetadata
	Contents T
}

// FieldUnmarshaler is implemented by types that decode themselves from a
// single field. limit is the byte cap for the field; NoLimit disables it.
type FieldUnmarshaler interface {
	UnmarshalField(ctx context.Context, field *Field, limit int64) error
}

var _ FieldUnmarshaler = (*FieldData[string])(nil)

// NewField builds a Field from raw parts. It is useful for custom sources and
// tests; requests are decoded with fields built from mime/multipart parts.
func NewField(name, fileName, contentType string, header textproto.MIMEHeader, body io.Reader) *Field {
	if header == nil {
		header = make(textproto.MIMEHeader)
	}
	if body == nil {
		body = strings.NewReader("")
	}
	return &Field{
		Name:        name,
		FileName:    fileName,
		ContentType: contentType,
		Header:      header,
		body:        body,
	}
}

func fieldFromPart(part *stdmultipart.Part) *Field {
	return NewField(
		part.FormName(),
		part.FileName(),
		part.Header.Get("Content-Type"),
		part.Header,
		part,
	)
}

// Metadata returns a copy of the descriptive parts of the field.
func (f *Field) Metadata() FieldMetadata {
	if f == nil {
		return FieldMetadata{}
	}
	headers := make(textproto.MIMEHeader, len(f.Header))
	for key, values := range f.Header {
		headers[key] = append([]string(nil), values...)
	}
	return FieldMetadata{
		Name:        f.Name,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Headers:     headers,
	}
}

// Reader exposes the body capped at limit. Reading past the cap fails with a
// FieldTooLarge rejection. math.MaxInt64 is treated as NoLimit.
func (f *Field) Reader(limit int64) io.Reader {
	if limit <= NoLimit || limit == math.MaxInt64 {
		return &fieldReader{field: f, r: f.body}
	}
	return &fieldReader{field: f, r: f.body, remaining: limit + 1, limit: limit, capped: true}
}

// Bytes reads the whole body, enforcing limit.
func (f *Field) Bytes(limit int64) ([]byte, error) {
	data, err := io.ReadAll(f.Reader(limit))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Text reads the body as UTF-8 text, enforcing limit.
func (f *Field) Text(limit int64) (string, error) {
	data, err := f.Bytes(limit)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", wrongFieldType(f.Name, "string", errors.New("invalid utf-8 sequence"))
	}
	return string(data), nil
}

func (f *Field) drain() error {
	_, err := io.Copy(io.Discard, f.Reader(NoLimit))
	return err
}

type fieldReader struct {
	field     *Field
	r         io.Reader
	remaining int64
	limit     int64
	capped    bool
}

func (r *fieldReader) Read(p []byte) (int, error) {
	if r.capped {
		if r.remaining <= 0 {
			return 0, fieldTooLarge(r.field.Name, r.limit)
		}
		if int64(len(p)) > r.remaining {
			p = p[:r.remaining]
		}
	}
	n, err := r.r.Read(p)
	if r.capped {
		r.remaining -= int64(n)
		if r.remaining <= 0 {
			return n - 1, fieldTooLarge(r.field.Name, r.limit)
		}
	}
	if err != nil && err != io.EOF {
		return n, bodyError(err)
	}
	return n, err
}

// bodyError classifies a failure while reading the request stream.
func bodyError(err error) error {
	if _, ok := AsError(err); ok {
		return err
	}
	var maxBytes *http.MaxBytesError
	return &Error{
		Kind:         KindInvalidRequestBody,
		BodyTooLarge: errors.As(err, &maxBytes),
		Err:          err,
	}
}

// UnmarshalField records the field metadata and decodes Contents.
func (d *FieldData[T]) UnmarshalField(ctx context.Context, field *Field, limit int64) error {
	contents, err := DecodeField[T](ctx, field, limit)
	if err != nil {
		return err
	}
	d.Metadata = field.Metadata()
	d.Contents = contents
	return nil
}

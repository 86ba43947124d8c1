// Package testsupport builds multipart requests for tests.
package testsupport

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

// Part is one field of a multipart fixture.
type Part struct {
	Name        string
	FileName    string
	ContentType string
	Header      textproto.MIMEHeader
	Body        []byte
}

// Text returns a plain form value part.
func Text(name, value string) Part {
	return Part{Name: name, Body: []byte(value)}
}

// File returns a file upload part.
func File(name, fileName, contentType string, body []byte) Part {
	return Part{Name: name, FileName: fileName, ContentType: contentType, Body: body}
}

// EncodeForm encodes parts as a multipart/form-data body and returns it along
// with the matching Content-Type header value.
func EncodeForm(parts ...Part) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, part := range parts {
		header := make(textproto.MIMEHeader, len(part.Header)+2)
		for key, values := range part.Header {
			header[key] = append([]string(nil), values...)
		}
		header.Set("Content-Disposition", contentDisposition(part))
		if part.ContentType != "" {
			header.Set("Content-Type", part.ContentType)
		}
		w, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("testsupport: create part %q: %w", part.Name, err)
		}
		if _, err := w.Write(part.Body); err != nil {
			return nil, "", fmt.Errorf("testsupport: write part %q: %w", part.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("testsupport: close writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// NewMultipartRequest builds a POST request carrying parts. Fixture failures
// abort the test to keep call sites concise.
func NewMultipartRequest(t *testing.T, target string, parts ...Part) *http.Request {
	t.Helper()

	body, contentType, err := EncodeForm(parts...)
	if err != nil {
		t.Fatalf("encode form: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

// NewRawRequest builds a POST request with an arbitrary body and content type,
// for exercising malformed inputs.
func NewRawRequest(target, contentType, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func contentDisposition(part Part) string {
	var b strings.Builder
	b.WriteString("form-data")
	if part.Name != "" {
		fmt.Fprintf(&b, `; name="%s"`, escapeQuotes(part.Name))
	}
	if part.FileName != "" {
		fmt.Fprintf(&b, `; filename="%s"`, escapeQuotes(part.FileName))
	}
	return b.String()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

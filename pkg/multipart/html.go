package multipart

import (
	"context"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	htmlPolicyOnce sync.Once
	htmlPolicy     *bluemonday.Policy
)

// SanitizedHTML is rich text submitted through a form. Markup outside the
// user generated content policy is stripped while decoding.
type SanitizedHTML string

var _ FieldUnmarshaler = (*SanitizedHTML)(nil)

// UnmarshalField reads the field as text and sanitizes it.
func (h *SanitizedHTML) UnmarshalField(_ context.Context, field *Field, limit int64) error {
	text, err := field.Text(limit)
	if err != nil {
		return err
	}
	*h = SanitizedHTML(SanitizeHTML(text))
	return nil
}

// String returns the sanitized markup.
func (h SanitizedHTML) String() string {
	return string(h)
}

// SanitizeHTML applies the policy used by SanitizedHTML.
func SanitizeHTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(htmlSanitizer().Sanitize(trimmed))
}

func htmlSanitizer() *bluemonday.Policy {
	htmlPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		htmlPolicy = policy
	})
	return htmlPolicy
}

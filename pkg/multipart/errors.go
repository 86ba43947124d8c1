package multipart

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a multipart extraction was rejected.
type ErrorKind string

const (
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindInvalidRequestBody ErrorKind = "invalid_request_body"
	KindMissingField       ErrorKind = "missing_field"
	KindWrongFieldType     ErrorKind = "wrong_field_type"
	KindDuplicateField     ErrorKind = "duplicate_field"
	KindUnknownField       ErrorKind = "unknown_field"
	KindInvalidEnumValue   ErrorKind = "invalid_enum_value"
	KindNamelessField      ErrorKind = "nameless_field"
	KindFieldTooLarge      ErrorKind = "field_too_large"
	KindOther              ErrorKind = "other"
)

// HTTPError mirrors the contract hosts use to pick a response status.
type HTTPError interface {
	error
	StatusCode() int
}

// Error is the rejection returned by every extraction entry point.
type Error struct {
	Kind       ErrorKind
	Field      string
	WantedType string
	Value      string
	Limit      int64
	// BodyTooLarge marks InvalidRequestBody rejections caused by the request
	// size cap.
	BodyTooLarge bool
	Err          error
}

var _ HTTPError = (*Error)(nil)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindInvalidRequest:
		return fmt.Sprintf("request is malformed (%s)", causeText(e.Err))
	case KindInvalidRequestBody:
		return fmt.Sprintf("request body is malformed (%s)", causeText(e.Err))
	case KindMissingField:
		return fmt.Sprintf("field '%s' is required", e.Field)
	case KindWrongFieldType:
		return fmt.Sprintf("field '%s' must be of type '%s': %s", e.Field, e.WantedType, causeText(e.Err))
	case KindDuplicateField:
		return fmt.Sprintf("field '%s' is already present", e.Field)
	case KindUnknownField:
		return fmt.Sprintf("field '%s' is not expected", e.Field)
	case KindInvalidEnumValue:
		return fmt.Sprintf("invalid value '%s' for '%s'", e.Value, e.Field)
	case KindNamelessField:
		return "field name is empty"
	case KindFieldTooLarge:
		return fmt.Sprintf("field '%s' is larger than %d bytes", e.Field, e.Limit)
	default:
		return causeText(e.Err)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusCode maps the rejection onto an HTTP status.
func (e *Error) StatusCode() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindFieldTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindInvalidRequestBody:
		if e.BodyTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case KindOther, "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// AsError unwraps err into a rejection when it carries one.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func missingField(name string) *Error {
	return &Error{Kind: KindMissingField, Field: name}
}

func wrongFieldType(name, wanted string, err error) *Error {
	return &Error{Kind: KindWrongFieldType, Field: name, WantedType: wanted, Err: err}
}

func duplicateField(name string) *Error {
	return &Error{Kind: KindDuplicateField, Field: name}
}

func unknownField(name string) *Error {
	return &Error{Kind: KindUnknownField, Field: name}
}

func invalidEnumValue(name, value string) *Error {
	return &Error{Kind: KindInvalidEnumValue, Field: name, Value: value}
}

func fieldTooLarge(name string, limit int64) *Error {
	return &Error{Kind: KindFieldTooLarge, Field: name, Limit: limit}
}

func other(err error) *Error {
	return &Error{Kind: KindOther, Err: err}
}

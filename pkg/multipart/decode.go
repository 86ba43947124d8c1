package multipart

import (
	"context"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	bytesType           = reflect.TypeOf([]byte(nil))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// DecodeField decodes a single field into T.
func DecodeField[T any](ctx context.Context, field *Field, limit int64) (T, error) {
	var out T
	if err := DecodeFieldValue(ctx, field, limit, reflect.ValueOf(&out).Elem()); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DecodeFieldValue decodes field into the settable value v. FieldUnmarshaler
// implementations win, then encoding.TextUnmarshaler, then the scalar kinds.
func DecodeFieldValue(ctx context.Context, field *Field, limit int64, v reflect.Value) error {
	if field == nil {
		return other(fmt.Errorf("multipart: nil field"))
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return other(err)
		}
	}
	if !v.CanSet() {
		return other(fmt.Errorf("multipart: cannot decode field %q into unsettable %s", field.Name, v.Type()))
	}

	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(FieldUnmarshaler); ok {
			return u.UnmarshalField(ctx, field, limit)
		}
	}

	if v.Kind() == reflect.Pointer {
		elem := reflect.New(v.Type().Elem())
		if err := DecodeFieldValue(ctx, field, limit, elem.Elem()); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	}

	if v.Type() == bytesType {
		data, err := field.Bytes(limit)
		if err != nil {
			return err
		}
		v.SetBytes(data)
		return nil
	}

	text, err := field.Text(limit)
	if err != nil {
		return err
	}

	if v.Addr().Type().Implements(textUnmarshalerType) {
		u := v.Addr().Interface().(encoding.TextUnmarshaler)
		if err := u.UnmarshalText([]byte(text)); err != nil {
			return wrongFieldType(field.Name, v.Type().String(), err)
		}
		return nil
	}

	return setScalar(field.Name, text, v)
}

func setScalar(name, text string, v reflect.Value) error {
	wanted := v.Type().String()
	switch v.Kind() {
	case reflect.String:
		v.SetString(text)
	case reflect.Bool:
		parsed, err := parseBool(text)
		if err != nil {
			return wrongFieldType(name, wanted, err)
		}
		v.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(strings.TrimSpace(text), 10, v.Type().Bits())
		if err != nil {
			return wrongFieldType(name, wanted, err)
		}
		v.SetInt(parsed)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseUint(strings.TrimSpace(text), 10, v.Type().Bits())
		if err != nil {
			return wrongFieldType(name, wanted, err)
		}
		v.SetUint(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), v.Type().Bits())
		if err != nil {
			return wrongFieldType(name, wanted, err)
		}
		v.SetFloat(parsed)
	default:
		return other(fmt.Errorf("multipart: field %q has unsupported type %s", name, wanted))
	}
	return nil
}

// parseBool accepts strconv spellings plus the "on"/"off" values browsers
// send for checkboxes.
func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}

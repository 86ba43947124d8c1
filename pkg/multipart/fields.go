package multipart

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// FieldSpec describes how one struct field maps onto a multipart field.
// Schema generators use the same specs so documentation and decoding agree.
type FieldSpec struct {
	Name        string
	GoName      string
	Index       []int
	Type        reflect.Type
	Required    bool
	Repeated    bool
	HasLimit    bool
	Limit       int64
	Enum        []string
	Description string
}

var specCache sync.Map

// StructFields returns the multipart field specs of struct type t. Fields
// whose type cannot be decoded from a form field are an error.
func StructFields(t reflect.Type) ([]FieldSpec, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("multipart: %s is not a struct", t)
	}
	if cached, ok := specCache.Load(t); ok {
		return cached.([]FieldSpec), nil
	}

	specs, err := collectFields(t, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(specs))
	for _, spec := range specs {
		if prev, exists := seen[spec.Name]; exists {
			return nil, fmt.Errorf("multipart: %s: fields %s and %s share form name %q", t, prev, spec.GoName, spec.Name)
		}
		seen[spec.Name] = spec.GoName
	}

	specCache.Store(t, specs)
	return specs, nil
}

func collectFields(t reflect.Type, prefix []int) ([]FieldSpec, error) {
	var specs []FieldSpec
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, opts := parseFormTag(sf.Tag.Get("form"))
		if name == "-" && len(opts) == 0 {
			continue
		}

		index := append(append([]int(nil), prefix...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && name == "" && !isFieldType(sf.Type) {
			nested, err := collectFields(sf.Type, index)
			if err != nil {
				return nil, err
			}
			specs = append(specs, nested...)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		if name == "" {
			name = jsonName(sf)
		}
		if name == "" {
			name = strings.ToLower(sf.Name)
		}

		elem := sf.Type
		if isRepeated(elem) {
			elem = elem.Elem()
		}
		if !decodable(elem) {
			return nil, fmt.Errorf("multipart: field %s has unsupported type %s", sf.Name, sf.Type)
		}

		spec := FieldSpec{
			Name:        name,
			GoName:      sf.Name,
			Index:       index,
			Type:        sf.Type,
			Repeated:    isRepeated(sf.Type),
			Description: strings.TrimSpace(sf.Tag.Get("description")),
		}
		spec.Required = sf.Type.Kind() != reflect.Pointer && !spec.Repeated && !hasOption(opts, "omitempty")

		if raw, ok := sf.Tag.Lookup("limit"); ok {
			limit, err := ParseLimit(raw)
			if err != nil {
				return nil, fmt.Errorf("multipart: field %s: %w", sf.Name, err)
			}
			spec.HasLimit = true
			spec.Limit = limit
		}
		if raw := strings.TrimSpace(sf.Tag.Get("enum")); raw != "" {
			for _, value := range strings.Split(raw, ",") {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					spec.Enum = append(spec.Enum, trimmed)
				}
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseFormTag(tag string) (string, []string) {
	if tag == "" {
		return "", nil
	}
	parts := strings.Split(tag, ",")
	return strings.TrimSpace(parts[0]), parts[1:]
}

func jsonName(sf reflect.StructField) string {
	name, _ := parseFormTag(sf.Tag.Get("json"))
	if name == "-" {
		return ""
	}
	return name
}

func hasOption(opts []string, want string) bool {
	for _, opt := range opts {
		if strings.TrimSpace(opt) == want {
			return true
		}
	}
	return false
}

// isFieldType reports whether t decodes from a single field on its own.
func isFieldType(t reflect.Type) bool {
	if t.Implements(fieldUnmarshalerType) || reflect.PointerTo(t).Implements(fieldUnmarshalerType) {
		return true
	}
	return reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// decodable reports whether DecodeFieldValue can fill t from one field.
func decodable(t reflect.Type) bool {
	if t == bytesType || isFieldType(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Pointer:
		return decodable(t.Elem())
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isRepeated(t reflect.Type) bool {
	if t.Kind() != reflect.Slice || t == bytesType {
		return false
	}
	return !isFieldType(t)
}

var fieldUnmarshalerType = reflect.TypeOf((*FieldUnmarshaler)(nil)).Elem()

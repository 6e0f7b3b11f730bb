package analytics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

var (
	// ErrInvalidPayload is returned for malformed JSON or unknown fields.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrMissingField is returned when a required field is absent or null.
	ErrMissingField = errors.New("missing required field")
)

// maxPayloadSize caps bodies read by DecodeStrict.
const maxPayloadSize = 64 << 10

// DecodeStrict decodes a JSON document into v, which must be a pointer to a
// struct or a slice of structs. Fields whose json tag lacks omitempty are
// required and must be present and non-null; unknown fields are rejected.
func DecodeStrict(r io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(r, maxPayloadSize+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrInvalidPayload, err)
	}
	if len(data) > maxPayloadSize {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidPayload, maxPayloadSize)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer", ErrInvalidPayload)
	}
	if err := checkRequired(json.RawMessage(data), rv.Elem().Type(), ""); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// checkRequired walks raw alongside t and reports the first required field
// that is missing. path is the dotted location used in error messages.
func checkRequired(raw json.RawMessage, t reflect.Type, path string) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return fmt.Errorf("%w: %s: expected object", ErrInvalidPayload, pathOrRoot(path))
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, optional := jsonField(f)
			if name == "-" {
				continue
			}
			val, ok := obj[name]
			present := ok && !bytes.Equal(bytes.TrimSpace(val), []byte("null"))
			if !present {
				if optional {
					continue
				}
				return fmt.Errorf("%w: %s", ErrMissingField, joinPath(path, name))
			}
			if err := checkRequired(val, f.Type, joinPath(path, name)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		elem := t.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("%w: %s: expected array", ErrInvalidPayload, pathOrRoot(path))
		}
		for i, item := range items {
			if err := checkRequired(item, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// jsonField returns the wire name of f and whether it is tagged omitempty.
func jsonField(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name, false
	}
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = f.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			return name, true
		}
	}
	return name, false
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func pathOrRoot(path string) string {
	if path == "" {
		return "body"
	}
	return path
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is either a literal baked into the layout or a pointer into the data document.
type Value[T any] struct {
	fixed     T
	path      string
	isPointer bool
}

// Fixed wraps a literal value.
func Fixed[T any](v T) Value[T] {
	return Value[T]{fixed: v}
}

// Pointer references the data document at the given RFC 6901 path.
func Pointer[T any](path string) Value[T] {
	return Value[T]{path: path, isPointer: true}
}

// IsPointer reports whether the value is resolved from the document.
func (v Value[T]) IsPointer() bool { return v.isPointer }

// Path returns the pointer path, or "" for fixed values.
func (v Value[T]) Path() string { return v.path }

// Literal returns the fixed value and true, or the zero value and false for pointers.
func (v Value[T]) Literal() (T, bool) {
	if v.isPointer {
		var zero T
		return zero, false
	}
	return v.fixed, true
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if v.isPointer {
		return json.Marshal(map[string]string{"pointer": v.path})
	}
	return json.Marshal(map[string]T{"fixed": v.fixed})
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: value: %v", ErrMalformedMessage, err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("%w: value must have exactly one of fixed|pointer, got %d keys", ErrMalformedMessage, len(raw))
	}
	if body, ok := raw["pointer"]; ok {
		var path string
		if err := json.Unmarshal(body, &path); err != nil {
			return fmt.Errorf("%w: pointer path: %v", ErrMalformedMessage, err)
		}
		*v = Pointer[T](path)
		return nil
	}
	if body, ok := raw["fixed"]; ok {
		var literal T
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&literal); err != nil {
			return fmt.Errorf("%w: fixed literal: %v", ErrMalformedMessage, err)
		}
		*v = Fixed(literal)
		return nil
	}
	return fmt.Errorf("%w: value must have exactly one of fixed|pointer", ErrMalformedMessage)
}

// Resolve returns the literal for Fixed values without touching doc, or looks up the
// pointer and coerces the target with coerce. Resolution is all-or-nothing.
func Resolve[T any](v Value[T], doc Document, coerce func(path string, raw any) (T, error)) (T, error) {
	if !v.isPointer {
		return v.fixed, nil
	}
	raw, err := doc.Lookup(v.path)
	if err != nil {
		var zero T
		return zero, err
	}
	return coerce(v.path, raw)
}

// ResolveString resolves a string-typed field.
func ResolveString(v Value[string], doc Document) (string, error) {
	return Resolve(v, doc, coerceString)
}

// ResolveNumber resolves a number-typed field.
func ResolveNumber(v Value[json.Number], doc Document) (json.Number, error) {
	return Resolve(v, doc, coerceNumber)
}

// ResolveBool resolves a boolean-typed field.
func ResolveBool(v Value[bool], doc Document) (bool, error) {
	return Resolve(v, doc, coerceBool)
}

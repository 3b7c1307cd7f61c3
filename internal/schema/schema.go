// Package schema holds the declarative shape of every structured document the
// AI boundary produces. One table drives both the JSON Schema used to validate
// model output and the response schema sent to the model.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Kind is the JSON type of a field
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	// KindStringMap is an object with arbitrary string values. It is never
	// requested from the model.
	KindStringMap Kind = "stringMap"
)

// Field describes one property. Items is set for arrays, Fields for objects.
type Field struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
	Enum        []string
	Items       *Field
	Fields      []Field
}

// Schema is a named root object.
type Schema struct {
	Name   string
	Fields []Field

	once     sync.Once
	compiled *gojsonschema.Schema
	compErr  error
}

// Root returns the schema as an object field.
func (s *Schema) Root() Field {
	return Field{Name: s.Name, Kind: KindObject, Required: true, Fields: s.Fields}
}

// JSONSchema renders the table as a draft-07 JSON Schema document. Objects are
// closed: properties outside the table are a validation failure.
func (s *Schema) JSONSchema() map[string]any {
	doc := fieldJSONSchema(s.Root())
	doc["$schema"] = "http://json-schema.org/draft-07/schema#"
	doc["title"] = s.Name
	return doc
}

func fieldJSONSchema(f Field) map[string]any {
	out := map[string]any{}
	if f.Description != "" {
		out["description"] = f.Description
	}

	switch f.Kind {
	case KindObject:
		props := map[string]any{}
		required := []string{}
		for _, child := range f.Fields {
			props[child.Name] = fieldJSONSchema(child)
			if child.Required {
				required = append(required, child.Name)
			}
		}
		out["type"] = "object"
		out["properties"] = props
		out["additionalProperties"] = false
		if len(required) > 0 {
			out["required"] = required
		}
	case KindStringMap:
		out["type"] = "object"
		out["additionalProperties"] = map[string]any{"type": "string"}
	case KindArray:
		out["type"] = "array"
		if f.Items != nil {
			out["items"] = fieldJSONSchema(*f.Items)
		}
	default:
		out["type"] = string(f.Kind)
		if len(f.Enum) > 0 {
			enum := make([]any, len(f.Enum))
			for i, v := range f.Enum {
				enum[i] = v
			}
			out["enum"] = enum
		}
	}
	return out
}

func (s *Schema) compile() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.compiled, s.compErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.JSONSchema()))
	})
	return s.compiled, s.compErr
}

// FieldError is a single violation at a JSON path
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a document
type ValidationError struct {
	Schema string       `json:"schema"`
	Errors []FieldError `json:"errors"`
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("%s does not match schema: %s", ve.Schema, strings.Join(parts, "; "))
}

// Validate checks a raw JSON document. It returns *ValidationError when the
// document is well-formed JSON with the wrong shape.
func (s *Schema) Validate(raw []byte) error {
	compiled, err := s.compile()
	if err != nil {
		return fmt.Errorf("compile %s schema: %w", s.Name, err)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationError{
			Schema: s.Name,
			Errors: []FieldError{{Field: "(root)", Message: err.Error()}},
		}
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: s.Name, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}

// Package schema describes the expected shape of request and response values
// and compiles those descriptions into reusable validators.
//
// A Schema is an immutable tree:
//
//	user := schema.Object(schema.Fields{
//	    "id":       schema.Number(),
//	    "username": schema.String(schema.MinLength(1)),
//	    "profile": schema.Object(schema.Fields{
//	        "name": schema.String(),
//	    }),
//	    "nickname": schema.Optional(schema.String()),
//	})
//
// Object fields are required unless wrapped in Optional. Fields present on a
// value but not declared by the schema are tolerated.
//
// Compile turns a Schema into a *Compiled validator. Check validates decoded
// JSON values as they are; Coerce first converts textual values (query
// strings, path parameters, headers) into the declared primitive kind.
package schema

import (
	"maps"
	"regexp"
	"slices"
)

// Kind identifies the node type of a Schema.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindInteger
	KindBoolean
	KindObject
	KindArray
)

// String returns the JSON Schema name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "any"
	}
}

// Fields declares the named members of an object schema.
type Fields map[string]Schema

// Schema is an immutable description of an expected value shape.
// The zero value is equivalent to Any.
type Schema struct {
	kind     Kind
	optional bool
	fields   Fields
	items    *Schema
	rules    rules
}

type rules struct {
	minLength *int
	maxLength *int
	pattern   *regexp.Regexp
	enum      []string
	minimum   *float64
	maximum   *float64
	minItems  *int
	maxItems  *int
}

// Option adds a constraint to a primitive or array schema.
type Option func(*rules)

// Any matches every value.
func Any() Schema { return Schema{kind: KindAny} }

// String matches string values.
func String(opts ...Option) Schema { return newSchema(KindString, opts) }

// Number matches any numeric value.
func Number(opts ...Option) Schema { return newSchema(KindNumber, opts) }

// Integer matches numeric values without a fractional part.
func Integer(opts ...Option) Schema { return newSchema(KindInteger, opts) }

// Boolean matches true and false.
func Boolean() Schema { return Schema{kind: KindBoolean} }

// Object matches a map whose declared fields each match their schema.
func Object(fields Fields) Schema {
	return Schema{kind: KindObject, fields: maps.Clone(fields)}
}

// Array matches a list whose elements all match item.
func Array(item Schema, opts ...Option) Schema {
	s := newSchema(KindArray, opts)
	s.items = &item
	return s
}

// Optional marks s as optional when used as an object field. An optional
// field may be absent or null.
func Optional(s Schema) Schema {
	s.optional = true
	return s
}

func newSchema(k Kind, opts []Option) Schema {
	s := Schema{kind: k}
	for _, opt := range opts {
		opt(&s.rules)
	}
	return s
}

// Kind returns the node type.
func (s Schema) Kind() Kind { return s.kind }

// IsOptional reports whether s was wrapped in Optional.
func (s Schema) IsOptional() bool { return s.optional }

// FieldNames returns the declared object field names in sorted order.
func (s Schema) FieldNames() []string {
	return slices.Sorted(maps.Keys(s.fields))
}

// Field returns the schema declared for the named object field.
func (s Schema) Field(name string) (Schema, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Items returns the element schema of an array schema.
func (s Schema) Items() (Schema, bool) {
	if s.items == nil {
		return Schema{}, false
	}
	return *s.items, true
}

// MinLength requires a string of at least n characters.
func MinLength(n int) Option {
	return func(r *rules) { r.minLength = &n }
}

// MaxLength requires a string of at most n characters.
func MaxLength(n int) Option {
	return func(r *rules) { r.maxLength = &n }
}

// Pattern requires a string matching the regular expression expr.
// It panics if expr does not compile.
func Pattern(expr string) Option {
	re := regexp.MustCompile(expr)
	return func(r *rules) { r.pattern = re }
}

// Enum requires a string equal to one of values.
func Enum(values ...string) Option {
	return func(r *rules) { r.enum = slices.Clone(values) }
}

// Minimum requires a number greater than or equal to n.
func Minimum(n float64) Option {
	return func(r *rules) { r.minimum = &n }
}

// Maximum requires a number less than or equal to n.
func Maximum(n float64) Option {
	return func(r *rules) { r.maximum = &n }
}

// MinItems requires an array of at least n elements.
func MinItems(n int) Option {
	return func(r *rules) { r.minItems = &n }
}

// MaxItems requires an array of at most n elements.
func MaxItems(n int) Option {
	return func(r *rules) { r.maxItems = &n }
}

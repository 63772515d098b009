package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Violation describes a single place where a value does not match its schema.
type Violation struct {
	Path     string // dotted location within the value, empty for the root
	Expected string // kind declared by the schema
	Actual   string // kind observed on the value, "missing" for absent fields
	Message  string
	Value    any
}

// Result is the outcome of validating one value. It is either valid, carrying
// the (possibly coerced) value, or invalid, carrying every violation found.
type Result struct {
	Value      any
	Violations []Violation
}

// Valid reports whether the value matched the schema.
func (r Result) Valid() bool { return len(r.Violations) == 0 }

// Compiled is a reusable validator built from a Schema. It is safe for
// concurrent use.
type Compiled struct {
	schema Schema
	check  checkFunc
}

// checkFunc validates v at path, appending violations to errs, and returns the
// normalized value.
type checkFunc func(v any, path string, coerce bool, errs *[]Violation) any

// Compile builds a validator for s. The schema tree is walked once here;
// validation never revisits it.
func Compile(s Schema) *Compiled {
	return &Compiled{schema: s, check: compile(s)}
}

// Schema returns the schema c was compiled from.
func (c *Compiled) Schema() Schema { return c.schema }

// Check validates a decoded value without converting text.
func (c *Compiled) Check(v any) Result { return c.run(v, false) }

// Coerce validates a value sourced from text, converting strings into the
// declared primitive kind before checking.
func (c *Compiled) Coerce(v any) Result { return c.run(v, true) }

func (c *Compiled) run(v any, coerce bool) Result {
	var errs []Violation
	out := c.check(v, "", coerce, &errs)
	if len(errs) > 0 {
		return Result{Violations: errs}
	}
	return Result{Value: out}
}

func compile(s Schema) checkFunc {
	switch s.kind {
	case KindString:
		return compileString(s.rules)
	case KindNumber:
		return compileNumber(s.rules, false)
	case KindInteger:
		return compileNumber(s.rules, true)
	case KindBoolean:
		return compileBoolean()
	case KindObject:
		return compileObject(s)
	case KindArray:
		return compileArray(s)
	default:
		return func(v any, _ string, _ bool, _ *[]Violation) any { return v }
	}
}

func compileString(r rules) checkFunc {
	return func(v any, path string, _ bool, errs *[]Violation) any {
		str, ok := v.(string)
		if !ok {
			*errs = append(*errs, mismatch(path, KindString, v))
			return nil
		}

		n := utf8.RuneCountInString(str)
		if r.minLength != nil && n < *r.minLength {
			*errs = append(*errs, constraint(path, KindString, str, fmt.Sprintf("must be at least %d characters", *r.minLength)))
		}
		if r.maxLength != nil && n > *r.maxLength {
			*errs = append(*errs, constraint(path, KindString, str, fmt.Sprintf("must be at most %d characters", *r.maxLength)))
		}
		if r.pattern != nil && !r.pattern.MatchString(str) {
			*errs = append(*errs, constraint(path, KindString, str, fmt.Sprintf("must match pattern %s", r.pattern)))
		}
		if len(r.enum) > 0 && !slices.Contains(r.enum, str) {
			*errs = append(*errs, constraint(path, KindString, str, fmt.Sprintf("must be one of [%s]", strings.Join(r.enum, ","))))
		}
		return str
	}
}

func compileNumber(r rules, integer bool) checkFunc {
	kind := KindNumber
	if integer {
		kind = KindInteger
	}

	return func(v any, path string, coerce bool, errs *[]Violation) any {
		f, ok := toFloat(v)
		out := v
		if !ok && coerce {
			if s, isText := v.(string); isText {
				f, ok = parseFloat(s)
				out = f
			}
		}
		if !ok || (integer && f != math.Trunc(f)) {
			*errs = append(*errs, mismatch(path, kind, v))
			return nil
		}

		if r.minimum != nil && f < *r.minimum {
			*errs = append(*errs, constraint(path, kind, f, "must be at least "+formatFloat(*r.minimum)))
		}
		if r.maximum != nil && f > *r.maximum {
			*errs = append(*errs, constraint(path, kind, f, "must be at most "+formatFloat(*r.maximum)))
		}
		return out
	}
}

func compileBoolean() checkFunc {
	return func(v any, path string, coerce bool, errs *[]Violation) any {
		if b, ok := v.(bool); ok {
			return b
		}
		if s, ok := v.(string); ok && coerce {
			switch s {
			case "true", "1":
				return true
			case "false", "0":
				return false
			}
		}
		*errs = append(*errs, mismatch(path, KindBoolean, v))
		return nil
	}
}

type objectField struct {
	name     string
	optional bool
	check    checkFunc
}

func compileObject(s Schema) checkFunc {
	names := s.FieldNames()
	fields := make([]objectField, len(names))
	for i, name := range names {
		fs := s.fields[name]
		fields[i] = objectField{name: name, optional: fs.optional, check: compile(fs)}
	}

	return func(v any, path string, coerce bool, errs *[]Violation) any {
		m, ok := asObject(v)
		if !ok {
			*errs = append(*errs, mismatch(path, KindObject, v))
			return nil
		}

		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}

		for _, f := range fields {
			val, present := m[f.name]
			if !present || val == nil {
				if f.optional {
					continue
				}
				if !present {
					*errs = append(*errs, Violation{
						Path:     join(path, f.name),
						Expected: fieldKind(s, f.name),
						Actual:   "missing",
						Message:  "is required",
					})
					continue
				}
			}
			out[f.name] = f.check(val, join(path, f.name), coerce, errs)
		}
		return out
	}
}

func compileArray(s Schema) checkFunc {
	item := compile(*s.items)
	r := s.rules

	return func(v any, path string, coerce bool, errs *[]Violation) any {
		list, ok := asList(v)
		if !ok && coerce && v != nil {
			// A single textual value stands for a one-element list.
			list, ok = []any{v}, true
		}
		if !ok {
			*errs = append(*errs, mismatch(path, KindArray, v))
			return nil
		}

		if r.minItems != nil && len(list) < *r.minItems {
			*errs = append(*errs, constraint(path, KindArray, len(list), fmt.Sprintf("must have at least %d items", *r.minItems)))
		}
		if r.maxItems != nil && len(list) > *r.maxItems {
			*errs = append(*errs, constraint(path, KindArray, len(list), fmt.Sprintf("must have at most %d items", *r.maxItems)))
		}

		out := make([]any, len(list))
		for i, el := range list {
			out[i] = item(el, path+"["+strconv.Itoa(i)+"]", coerce, errs)
		}
		return out
	}
}

func fieldKind(s Schema, name string) string {
	return s.fields[name].kind.String()
}

func mismatch(path string, want Kind, v any) Violation {
	actual := KindOf(v)
	return Violation{
		Path:     path,
		Expected: want.String(),
		Actual:   actual,
		Message:  fmt.Sprintf("expected %s, got %s", want, actual),
		Value:    v,
	}
}

func constraint(path string, k Kind, v any, msg string) Violation {
	return Violation{
		Path:     path,
		Expected: k.String(),
		Actual:   k.String(),
		Message:  msg,
		Value:    v,
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// KindOf names the kind of a decoded value the way violations report it.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any, map[string]string:
		return "object"
	case []any, []string:
		return "array"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package schema

// JSONSchema is the JSON Schema rendering of a Schema (the subset used by
// OpenAPI 3.1).
type JSONSchema struct {
	Ref         string                `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type        string                `json:"type,omitempty" yaml:"type,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Pattern     string                `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength   *int                  `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   *int                  `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Minimum     *float64              `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64              `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinItems    *int                  `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems    *int                  `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
}

// JSONSchema renders s as a JSON Schema object. Any renders as the empty
// schema, which accepts every value.
func (s Schema) JSONSchema() JSONSchema {
	js := JSONSchema{
		Enum:      s.rules.enum,
		MinLength: s.rules.minLength,
		MaxLength: s.rules.maxLength,
		Minimum:   s.rules.minimum,
		Maximum:   s.rules.maximum,
		MinItems:  s.rules.minItems,
		MaxItems:  s.rules.maxItems,
	}
	if s.kind != KindAny {
		js.Type = s.kind.String()
	}
	if s.rules.pattern != nil {
		js.Pattern = s.rules.pattern.String()
	}

	//exhaustive:ignore
	switch s.kind {
	case KindObject:
		js.Properties = make(map[string]JSONSchema, len(s.fields))
		for _, name := range s.FieldNames() {
			f := s.fields[name]
			js.Properties[name] = f.JSONSchema()
			if !f.optional {
				js.Required = append(js.Required, name)
			}
		}
	case KindArray:
		items := s.items.JSONSchema()
		js.Items = &items
	}

	return js
}

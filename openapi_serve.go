package gate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ServeSpec registers a GET route at the given path that serves
// the OpenAPI spec as JSON.
func (r *Router) ServeSpec(pattern string) {
	Get(r, pattern, func(c *Context) (any, error) {
		c.Set.Header.Set("Content-Type", "application/json")
		return r.Spec(), nil
	})
}

// ServeSpecYAML registers a GET route at the given path that serves
// the OpenAPI spec as YAML.
func (r *Router) ServeSpecYAML(pattern string) {
	Get(r, pattern, func(c *Context) (any, error) {
		var buf bytes.Buffer
		if err := r.WriteSpecYAML(&buf); err != nil {
			return nil, fmt.Errorf("encode spec: %w", err)
		}
		c.Set.Header.Set("Content-Type", "application/yaml")
		return buf.Bytes(), nil
	})
}

// WriteSpec writes the OpenAPI spec as indented JSON to w.
func (r *Router) WriteSpec(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Spec())
}

// WriteSpecYAML writes the OpenAPI spec as YAML to w.
func (r *Router) WriteSpecYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Spec()); err != nil {
		return err
	}
	return enc.Close()
}

package gate

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/bjaus/gate/schema"
)

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI    string              `json:"openapi" yaml:"openapi"`
	Info       OpenAPIInfo         `json:"info" yaml:"info"`
	Servers    []Server            `json:"servers,omitempty" yaml:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths" yaml:"paths"`
	Components *Components         `json:"components,omitempty" yaml:"components,omitempty"`
}

// OpenAPIInfo holds API metadata.
type OpenAPIInfo struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// Server is an OpenAPI server entry.
type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Components holds reusable schemas.
type Components struct {
	Schemas map[string]schema.JSONSchema `json:"schemas,omitempty" yaml:"schemas,omitempty"`
}

// PathItem maps HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string        `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody  `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   OperationResp `json:"responses" yaml:"responses"`
	Deprecated  bool          `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name     string            `json:"name" yaml:"name"`
	In       string            `json:"in" yaml:"in"`
	Required bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Schema   schema.JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required" yaml:"required"`
	Content  map[string]MediaObj `json:"content" yaml:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *schema.JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// OperationResp maps HTTP status codes to response objects.
type OperationResp map[string]ResponseObj

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description" yaml:"description"`
	Content     map[string]MediaObj `json:"content,omitempty" yaml:"content,omitempty"`
}

const problemSchemaName = "ProblemDetail"

// Spec generates the OpenAPI 3.1 document from the registered routes and
// their declared schemas. Routes registered with All are not listed.
func (r *Router) Spec() OpenAPISpec {
	r.mu.Lock()
	routes := r.routes
	r.mu.Unlock()

	spec := OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: OpenAPIInfo{
			Title:   r.title,
			Version: r.version,
		},
		Servers: r.servers,
		Paths:   make(map[string]PathItem),
	}

	needsProblem := false
	for _, ri := range routes {
		if ri.method == anyMethod {
			continue
		}
		path := toOpenAPIPath(ri.pattern)
		op := buildOperation(ri, path, r.codecs)
		if _, ok := op.Responses[strconv.Itoa(http.StatusBadRequest)]; ok {
			needsProblem = true
		}

		if spec.Paths[path] == nil {
			spec.Paths[path] = make(PathItem)
		}
		spec.Paths[path][strings.ToLower(ri.method)] = op
	}

	if needsProblem {
		spec.Components = &Components{
			Schemas: map[string]schema.JSONSchema{problemSchemaName: problemSchema()},
		}
	}

	return spec
}

// buildOperation creates an Operation from a route record. Structured bodies
// are listed under every media type the codecs can handle.
func buildOperation(ri *routeInfo, path string, codecs *codecRegistry) Operation {
	op := Operation{
		Summary:     ri.summary,
		Description: ri.desc,
		Tags:        ri.tags,
		OperationID: ri.operationID,
		Deprecated:  ri.deprecated,
		Parameters:  buildParameters(ri),
		Responses:   make(OperationResp),
	}
	if op.OperationID == "" {
		op.OperationID = generateOperationID(ri.method, path)
	}

	if ri.decl.body != nil {
		body := ri.decl.body.JSONSchema()
		op.RequestBody = &RequestBody{
			Required: !ri.decl.body.IsOptional(),
			Content:  mediaObjs(codecs.decoderTypes(), body),
		}
	}

	status := ri.status
	if status == 0 {
		status = http.StatusOK
	}

	switch rd := ri.decl.response; {
	case rd == nil:
		op.Responses[strconv.Itoa(status)] = ResponseObj{Description: "Successful response"}
	case rd.all != nil:
		op.Responses[strconv.Itoa(status)] = responseObj(*rd.all, codecs)
	default:
		for code, s := range rd.byStatus {
			op.Responses[strconv.Itoa(code)] = responseObj(s, codecs)
		}
		if _, ok := rd.byStatus[status]; !ok {
			op.Responses[strconv.Itoa(status)] = ResponseObj{Description: "Successful response"}
		}
	}

	if validates(ri.decl) {
		op.Responses[strconv.Itoa(http.StatusBadRequest)] = ResponseObj{
			Description: "Validation failed",
			Content: map[string]MediaObj{
				"application/problem+json": {Schema: &schema.JSONSchema{Ref: "#/components/schemas/" + problemSchemaName}},
			},
		}
	}

	return op
}

// buildParameters lists path parameters first, then query and header fields.
// Path parameters without a declared schema are documented as strings.
func buildParameters(ri *routeInfo) []Parameter {
	var params []Parameter

	for _, seg := range parsePattern(ri.pattern) {
		key, name := seg.param, seg.param
		if seg.wildcard {
			key, name = "*", wildcardParam
		}
		if name == "" {
			continue
		}
		p := Parameter{Name: name, In: "path", Required: true, Schema: schema.JSONSchema{Type: "string"}}
		if ri.decl.params != nil {
			if f, ok := ri.decl.params.Field(key); ok {
				p.Schema = f.JSONSchema()
			}
		}
		params = append(params, p)
	}

	params = append(params, fieldParameters(ri.decl.query, "query")...)
	params = append(params, fieldParameters(ri.decl.headers, "header")...)
	return params
}

func fieldParameters(s *schema.Schema, in string) []Parameter {
	if s == nil {
		return nil
	}
	var params []Parameter
	for _, name := range s.FieldNames() {
		f, _ := s.Field(name)
		params = append(params, Parameter{
			Name:     name,
			In:       in,
			Required: !f.IsOptional(),
			Schema:   f.JSONSchema(),
		})
	}
	return params
}

func responseObj(s schema.Schema, codecs *codecRegistry) ResponseObj {
	mediaTypes := codecs.contentTypes()
	//exhaustive:ignore
	switch s.Kind() {
	case schema.KindString, schema.KindNumber, schema.KindInteger, schema.KindBoolean:
		mediaTypes = []string{"text/plain"}
	}
	return ResponseObj{
		Description: "Successful response",
		Content:     mediaObjs(mediaTypes, s.JSONSchema()),
	}
}

func mediaObjs(mediaTypes []string, js schema.JSONSchema) map[string]MediaObj {
	content := make(map[string]MediaObj, len(mediaTypes))
	for _, mt := range mediaTypes {
		s := js
		content[mt] = MediaObj{Schema: &s}
	}
	return content
}

func validates(d declared) bool {
	return d.query != nil || d.params != nil || d.headers != nil || d.body != nil || d.response != nil
}

func problemSchema() schema.JSONSchema {
	return schema.Object(schema.Fields{
		"type":     schema.Optional(schema.String()),
		"title":    schema.Optional(schema.String()),
		"status":   schema.Integer(),
		"detail":   schema.Optional(schema.String()),
		"instance": schema.Optional(schema.String()),
		"surface":  schema.Optional(schema.String(schema.Enum("query", "params", "headers", "body", "response"))),
		"errors": schema.Optional(schema.Array(schema.Object(schema.Fields{
			"field":    schema.String(),
			"message":  schema.String(),
			"expected": schema.Optional(schema.String()),
			"actual":   schema.Optional(schema.String()),
			"value":    schema.Optional(schema.Any()),
		}))),
	}).JSONSchema()
}

// wildcardParam names the trailing "*" segment in OpenAPI paths.
const wildcardParam = "wildcard"

// toOpenAPIPath converts "/users/:id/*" to "/users/{id}/{wildcard}".
func toOpenAPIPath(pattern string) string {
	parts := splitPath(pattern)
	for i, p := range parts {
		switch {
		case strings.HasPrefix(p, ":") && len(p) > 1:
			parts[i] = "{" + p[1:] + "}"
		case p == "*" && i == len(parts)-1:
			parts[i] = "{" + wildcardParam + "}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

// generateOperationID derives an operationId such as "getUsersById" from the
// method and OpenAPI path.
func generateOperationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))

	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			b.WriteString("By")
			part = part[1 : len(part)-1]
		}
		b.WriteString(capitalize(part))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

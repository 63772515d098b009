package gate

import (
	"maps"
	"slices"

	"github.com/bjaus/gate/schema"
)

// routeInfo is a route record: the handler, its declared schemas and hooks
// (already merged with every enclosing guard), and OpenAPI metadata. It is
// immutable once added to a Router.
type routeInfo struct {
	method  string
	pattern string

	summary     string
	desc        string
	tags        []string
	deprecated  bool
	operationID string

	status    int
	bodyLimit int64

	decl   declared
	before []BeforeHook
	after  []AfterHook

	handler Handler

	// Compiled from decl when the route is added.
	query    *schema.Compiled
	params   *schema.Compiled
	headers  *schema.Compiled
	body     *schema.Compiled
	response *responseValidator
}

// declared holds the per-surface schemas of a route or guard. A nil surface
// is undeclared.
type declared struct {
	query    *schema.Schema
	params   *schema.Schema
	headers  *schema.Schema
	body     *schema.Schema
	response *responseDecl
}

// responseDecl is either a single schema for every status or a per-status
// mapping.
type responseDecl struct {
	all      *schema.Schema
	byStatus map[int]schema.Schema
}

type responseValidator struct {
	all      *schema.Compiled
	byStatus map[int]*schema.Compiled
}

// lookup returns the schema that applies to status, if any.
func (v *responseValidator) lookup(status int) (*schema.Compiled, bool) {
	if v == nil {
		return nil, false
	}
	if v.all != nil {
		return v.all, true
	}
	c, ok := v.byStatus[status]
	return c, ok
}

// compile builds the validators for every declared surface.
func (ri *routeInfo) compile() {
	ri.query = compileOptional(ri.decl.query)
	ri.params = compileOptional(ri.decl.params)
	ri.headers = compileOptional(ri.decl.headers)
	ri.body = compileOptional(ri.decl.body)

	if rd := ri.decl.response; rd != nil {
		rv := &responseValidator{all: compileOptional(rd.all)}
		if rd.byStatus != nil {
			rv.byStatus = make(map[int]*schema.Compiled, len(rd.byStatus))
			for code, s := range rd.byStatus {
				rv.byStatus[code] = schema.Compile(s)
			}
		}
		ri.response = rv
	}
}

func compileOptional(s *schema.Schema) *schema.Compiled {
	if s == nil {
		return nil
	}
	return schema.Compile(*s)
}

// inherit folds an enclosing guard into the route. Surfaces the route
// declares itself win; hooks and tags from the guard run (or list) first.
func (ri *routeInfo) inherit(g *routeInfo) {
	ri.decl.query = firstSet(ri.decl.query, g.decl.query)
	ri.decl.params = firstSet(ri.decl.params, g.decl.params)
	ri.decl.headers = firstSet(ri.decl.headers, g.decl.headers)
	ri.decl.body = firstSet(ri.decl.body, g.decl.body)
	ri.decl.response = firstSet(ri.decl.response, g.decl.response)

	ri.before = slices.Concat(g.before, ri.before)
	ri.after = slices.Concat(g.after, ri.after)
	ri.tags = slices.Concat(g.tags, ri.tags)

	if ri.status == 0 {
		ri.status = g.status
	}
	if ri.bodyLimit == 0 {
		ri.bodyLimit = g.bodyLimit
	}
	ri.deprecated = ri.deprecated || g.deprecated
}

func firstSet[T any](own, inherited *T) *T {
	if own != nil {
		return own
	}
	return inherited
}

// RouteOption configures a route, or every route of a guard, at registration
// time.
type RouteOption func(*routeInfo)

// WithQuery declares the schema of the query string. Values are coerced from
// text before checking.
func WithQuery(s schema.Schema) RouteOption {
	return func(ri *routeInfo) { ri.decl.query = &s }
}

// WithParams declares the schema of the bound path parameters. Values are
// coerced from text before checking.
func WithParams(s schema.Schema) RouteOption {
	return func(ri *routeInfo) { ri.decl.params = &s }
}

// WithHeaders declares the schema of the request headers. Header names are
// lower-case; undeclared headers are ignored.
func WithHeaders(s schema.Schema) RouteOption {
	return func(ri *routeInfo) { ri.decl.headers = &s }
}

// WithBody declares the schema of the parsed request body.
func WithBody(s schema.Schema) RouteOption {
	return func(ri *routeInfo) { ri.decl.body = &s }
}

// WithResponse declares a schema every response payload must match,
// whatever its status.
func WithResponse(s schema.Schema) RouteOption {
	return func(ri *routeInfo) { ri.decl.response = &responseDecl{all: &s} }
}

// WithResponses declares response schemas per status code. Payloads sent
// with a status that has no entry are not validated.
func WithResponses(byStatus map[int]schema.Schema) RouteOption {
	return func(ri *routeInfo) {
		ri.decl.response = &responseDecl{byStatus: maps.Clone(byStatus)}
	}
}

// WithBeforeHandle appends beforeHandle hooks.
func WithBeforeHandle(hooks ...BeforeHook) RouteOption {
	return func(ri *routeInfo) {
		ri.before = append(ri.before, hooks...)
	}
}

// WithAfterHandle appends afterHandle hooks.
func WithAfterHandle(hooks ...AfterHook) RouteOption {
	return func(ri *routeInfo) {
		ri.after = append(ri.after, hooks...)
	}
}

// WithStatus sets the status a response starts with before hooks or the
// handler change it. Defaults to 200.
func WithStatus(code int) RouteOption {
	return func(ri *routeInfo) {
		ri.status = code
	}
}

// WithBodyLimit sets a per-route maximum request body size in bytes.
// This overrides the router-wide limit for this route.
func WithBodyLimit(maxBytes int64) RouteOption {
	return func(ri *routeInfo) {
		ri.bodyLimit = maxBytes
	}
}

// WithSummary sets the OpenAPI summary for the route.
func WithSummary(s string) RouteOption {
	return func(ri *routeInfo) {
		ri.summary = s
	}
}

// WithDescription sets the OpenAPI description for the route.
func WithDescription(d string) RouteOption {
	return func(ri *routeInfo) {
		ri.desc = d
	}
}

// WithTags adds OpenAPI tags to the route.
func WithTags(tags ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.tags = append(ri.tags, tags...)
	}
}

// WithDeprecated marks the route as deprecated in the OpenAPI spec.
func WithDeprecated() RouteOption {
	return func(ri *routeInfo) {
		ri.deprecated = true
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) RouteOption {
	return func(ri *routeInfo) {
		ri.operationID = id
	}
}

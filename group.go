package gate

import "strings"

// Group is a registration scope. Every route registered on a Group inherits
// the group's path prefix, schemas and hooks; see Router.Guard for the merge
// rules. Groups exist only during registration: their effect is folded into
// each route record as it is added.
type Group struct {
	parent Registrar
	prefix string
	scope  routeInfo
}

func newGroup(parent Registrar, prefix string, opts []RouteOption) *Group {
	g := &Group{parent: parent, prefix: prefix}
	for _, opt := range opts {
		opt(&g.scope)
	}
	return g
}

// Group creates a new route group with the given prefix and guard options.
func (r *Router) Group(prefix string, opts ...RouteOption) *Group {
	return newGroup(r, prefix, opts)
}

// Guard calls build with a scope whose routes inherit opts:
//
//   - a schema surface (query, params, headers, body, response) declared by
//     the guard applies to every route that does not declare that surface
//     itself; a route's own declaration replaces the guard's as a whole;
//   - beforeHandle and afterHandle hooks of the guard run before the route's
//     own hooks.
//
// Guards nest. Outer guards contribute their hooks first, and the innermost
// declaration of a surface wins. Routes registered outside build are not
// affected.
func (r *Router) Guard(build func(g *Group), opts ...RouteOption) {
	build(newGroup(r, "", opts))
}

// Group creates a nested group with an additional prefix and guard options.
func (g *Group) Group(prefix string, opts ...RouteOption) *Group {
	return newGroup(g, prefix, opts)
}

// Guard nests a guard inside g.
func (g *Group) Guard(build func(g *Group), opts ...RouteOption) {
	build(newGroup(g, "", opts))
}

// addRoute implements Registrar for Group.
func (g *Group) addRoute(ri routeInfo) {
	ri.pattern = joinPath(g.prefix, ri.pattern)
	ri.inherit(&g.scope)
	g.parent.addRoute(ri)
}

func joinPath(prefix, pattern string) string {
	if prefix == "" {
		return pattern
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return pattern
	}
	if pattern == "" || pattern == "/" {
		return prefix
	}
	return prefix + "/" + strings.TrimPrefix(pattern, "/")
}

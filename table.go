package gate

import (
	"net/http"
	"strings"
)

// anyMethod is the method key of routes registered with All.
const anyMethod = "*"

// segment is one element of a compiled path pattern.
type segment struct {
	literal  string
	param    string // non-empty for ":name" segments
	wildcard bool   // trailing "*"
}

type tableEntry struct {
	segments []segment
	route    *routeInfo
}

// routeTable maps a method to its patterns in registration order. It is
// mutated only while routes are being registered and read without locking
// once the router is frozen.
type routeTable struct {
	methods map[string][]tableEntry
}

func newRouteTable() *routeTable {
	return &routeTable{methods: make(map[string][]tableEntry)}
}

// add appends a route under its method. Earlier registrations win ties.
func (t *routeTable) add(ri *routeInfo) {
	t.methods[ri.method] = append(t.methods[ri.method], tableEntry{
		segments: parsePattern(ri.pattern),
		route:    ri,
	})
}

// resolve returns the first route of method whose pattern matches path,
// with its bound parameters. HEAD falls back to GET routes. Routes
// registered with All are tried last.
func (t *routeTable) resolve(method, path string) (*routeInfo, map[string]string, bool) {
	parts := splitPath(path)

	methods := []string{method, anyMethod}
	if method == http.MethodHead {
		methods = []string{method, http.MethodGet, anyMethod}
	}

	for _, m := range methods {
		for _, e := range t.methods[m] {
			if params, ok := match(e.segments, parts); ok {
				return e.route, params, true
			}
		}
	}
	return nil, nil, false
}

func parsePattern(pattern string) []segment {
	parts := splitPath(pattern)
	segs := make([]segment, len(parts))
	for i, p := range parts {
		switch {
		case strings.HasPrefix(p, ":") && len(p) > 1:
			segs[i] = segment{param: p[1:]}
		case p == "*" && i == len(parts)-1:
			segs[i] = segment{wildcard: true}
		default:
			segs[i] = segment{literal: p}
		}
	}
	return segs
}

// splitPath splits "/a/b" into ["a", "b"]. The root path yields [""].
func splitPath(path string) []string {
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}

func match(segs []segment, parts []string) (map[string]string, bool) {
	wild := len(segs) > 0 && segs[len(segs)-1].wildcard
	if wild {
		if len(parts) < len(segs)-1 {
			return nil, false
		}
	} else if len(parts) != len(segs) {
		return nil, false
	}

	var params map[string]string
	for i, s := range segs {
		if s.wildcard {
			if params == nil {
				params = make(map[string]string)
			}
			params["*"] = strings.Join(parts[i:], "/")
			break
		}
		if s.param == "" {
			if parts[i] != s.literal {
				return nil, false
			}
			continue
		}
		if parts[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[s.param] = parts[i]
	}
	return params, true
}

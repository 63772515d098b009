package gate

import "net/http"

// Registrar is the interface accepted by the registration functions.
// Both *Router and *Group implement it.
type Registrar interface {
	addRoute(ri routeInfo)
}

// Handle registers h for method and pattern.
//
// Pattern segments are separated by "/". A segment ":name" binds the
// corresponding request segment to the path parameter name; a final "*"
// binds the remainder of the path to the parameter "*"; every other segment
// matches literally. When several patterns match a request, the one
// registered first wins.
func Handle(reg Registrar, method, pattern string, h Handler, opts ...RouteOption) {
	ri := routeInfo{
		method:  method,
		pattern: pattern,
		handler: h,
	}
	for _, opt := range opts {
		opt(&ri)
	}
	reg.addRoute(ri)
}

// Get registers a GET handler.
func Get(reg Registrar, pattern string, h Handler, opts ...RouteOption) {
	Handle(reg, http.MethodGet, pattern, h, opts...)
}

// Post registers a POST handler.
func Post(reg Registrar, pattern string, h Handler, opts ...RouteOption) {
	Handle(reg, http.MethodPost, pattern, h, opts...)
}

// Put registers a PUT handler.
func Put(reg Registrar, pattern string, h Handler, opts ...RouteOption) {
	Handle(reg, http.MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH handler.
func Patch(reg Registrar, pattern string, h Handler, opts ...RouteOption) {
	Handle(reg, http.MethodPatch, pattern, h, opts...)
}

// Delete registers a DELETE handler.
func Delete(reg Registrar, pattern string, h Handler, opts ...RouteOption) {
	Handle(reg, http.MethodDelete, pattern, h, opts...)
}

// Head registers a HEAD handler. HEAD requests without a HEAD route are
// served by the matching GET route.
func Head(reg Registrar, pattern string, h Handler, opts ...RouteOption) {
	Handle(reg, http.MethodHead, pattern, h, opts...)
}

// Options registers an OPTIONS handler.
func Options(reg Registrar, pattern string, h Handler, opts ...RouteOption) {
	Handle(reg, http.MethodOptions, pattern, h, opts...)
}

// All registers a handler for every method. Method-specific routes are
// matched first.
func All(reg Registrar, pattern string, h Handler, opts ...RouteOption) {
	Handle(reg, anyMethod, pattern, h, opts...)
}

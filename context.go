package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Context is the per-request state handed to hooks and handlers. It is
// created fresh for every dispatch and never shared between requests.
//
// Query, Params, Headers and Body hold the validated (and, for textual
// surfaces, coerced) values when the route declares a schema for that
// surface, and the raw parsed values otherwise.
type Context struct {
	Method     string
	Path       string
	Route      string // pattern of the matched route
	RawQuery   string
	Header     http.Header
	RemoteAddr string

	Query   map[string]any
	Params  map[string]any
	Headers map[string]any
	Body    any
	RawBody []byte

	// Set controls the response: hooks and handlers may change the status
	// and add headers.
	Set *Set

	ctx    context.Context
	params map[string]string
}

// Set is the mutable response control of a Context.
type Set struct {
	Status int
	Header http.Header
}

func newContext(ctx context.Context, req *Request) *Context {
	header := req.Header
	if header == nil {
		header = make(http.Header)
	}
	return &Context{
		Method:     req.Method,
		Path:       req.Path,
		RawQuery:   req.RawQuery,
		Header:     header,
		RemoteAddr: req.RemoteAddr,
		Set: &Set{
			Status: http.StatusOK,
			Header: make(http.Header),
		},
		ctx: ctx,
	}
}

// Context returns the request's context.Context. It is cancelled when the
// client goes away or the request timeout expires.
func (c *Context) Context() context.Context { return c.ctx }

// Param returns the raw text bound to a path parameter.
func (c *Context) Param(name string) string { return c.params[name] }

// Status sets the response status code.
func (c *Context) Status(code int) { c.Set.Status = code }

type contextKey[T any] struct{}

// SetValue stores a typed value on the Context. For use in beforeHandle hooks.
func SetValue[T any](c *Context, val T) {
	c.ctx = context.WithValue(c.ctx, contextKey[T]{}, val)
}

// GetValue retrieves a typed value stored with SetValue.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

// Bind converts a validated surface value (for example c.Body) into T by
// way of its JSON representation.
func Bind[T any](v any) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("bind: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("bind: %w", err)
	}
	return out, nil
}

package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bjaus/gate/schema"
)

// Dispatch runs the request lifecycle for req and always returns exactly one
// response. The stages run strictly in order, each at most once:
//
//  1. resolve the route (404 when none matches);
//  2. validate query, params, headers and body against the route's schemas,
//     in that order (400 on the first surface that fails);
//  3. run beforeHandle hooks; the first that responds replaces the handler;
//  4. run the handler;
//  5. run afterHandle hooks; the first that responds replaces the payload;
//  6. validate the final payload against the response schema that applies
//     to the current status (400 on mismatch);
//  7. serialize.
//
// Errors returned by hooks or the handler, and panics, become 500 responses
// unless the error carries its own status (see StatusCoder). Dispatch is safe
// for concurrent use.
func (r *Router) Dispatch(ctx context.Context, req *Request) *Response {
	r.freeze()
	start := time.Now()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ri, params, found := r.table.resolve(req.Method, req.Path)

	var endSpan func(int, error)
	if r.tracer != nil {
		ctx, endSpan = r.tracer.StartSpan(ctx, spanName(req.Method, ri), map[string]string{
			"http.method": req.Method,
			"http.path":   req.Path,
		})
	}

	c := newContext(ctx, req)

	var (
		resp *Response
		err  error
	)
	if !found {
		err = fmt.Errorf("%w: %s %s", ErrNotFound, req.Method, req.Path)
	} else {
		c.Route = ri.pattern
		c.params = params
		var payload any
		payload, err = r.run(c, ri, req.Body)
		if err == nil {
			resp, err = r.serialize(c, req.Header.Get("Accept"), payload)
		}
	}
	if err != nil {
		r.logFailure(c, err)
		resp = r.fail(c, err)
	}

	if endSpan != nil {
		endSpan(resp.Status, err)
	}
	r.observe(c, resp, err, time.Since(start))

	return resp
}

// run drives a resolved request from validation to the validated payload.
func (r *Router) run(c *Context, ri *routeInfo, body io.Reader) (payload any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(c.ctx, "panic recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
				"method", c.Method,
				"path", c.Path,
			)
			payload, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()

	if ri.status != 0 {
		c.Set.Status = ri.status
	}

	cleanup, err := r.validateRequest(c, ri, body)
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // temporary multipart files
	}
	if err != nil {
		return nil, err
	}

	payload, err = r.handle(c, ri)
	if err != nil {
		return nil, err
	}

	if v, ok := ri.response.lookup(c.Set.Status); ok {
		normalized, err := normalize(payload)
		if err != nil {
			return nil, fmt.Errorf("normalize response: %w", err)
		}
		if res := v.Check(normalized); !res.Valid() {
			return nil, invalid(SurfaceResponse, res)
		}
	}

	return payload, nil
}

// validateRequest fills the context's surfaces, validating each declared
// one in order: query, params, headers, body.
func (r *Router) validateRequest(c *Context, ri *routeInfo, body io.Reader) (func() error, error) {
	var err error

	if c.Query, err = coerceSurface(SurfaceQuery, ri.query, parseQuery(c.RawQuery, ri.decl.query)); err != nil {
		return nil, err
	}
	if c.Params, err = coerceSurface(SurfaceParams, ri.params, paramMap(c.params)); err != nil {
		return nil, err
	}
	if c.Headers, err = coerceSurface(SurfaceHeaders, ri.headers, headerMap(c.Header)); err != nil {
		return nil, err
	}

	if err := c.ctx.Err(); err != nil {
		return nil, err
	}

	limit := ri.bodyLimit
	if limit == 0 {
		limit = r.bodyLimit
	}
	raw, err := readBody(body, limit)
	if err != nil {
		return nil, err
	}
	c.RawBody = raw

	parsed, err := r.codecs.parseBody(c.Header.Get("Content-Type"), raw, ri.decl.body, ri.body != nil)
	if err != nil {
		return nil, err
	}
	c.Body = parsed.value

	if ri.body != nil {
		check := ri.body.Check
		if parsed.textual {
			check = ri.body.Coerce
		}
		res := check(parsed.value)
		if !res.Valid() {
			return parsed.cleanup, invalid(SurfaceBody, res)
		}
		c.Body = res.Value
	}

	return parsed.cleanup, nil
}

// coerceSurface validates a textual surface. Without a schema the raw map is
// kept as is.
func coerceSurface(surface Surface, v *schema.Compiled, raw map[string]any) (map[string]any, error) {
	if v == nil {
		return raw, nil
	}
	res := v.Coerce(raw)
	if !res.Valid() {
		return nil, invalid(surface, res)
	}
	if m, ok := res.Value.(map[string]any); ok {
		return m, nil
	}
	return raw, nil
}

// handle runs beforeHandle hooks, the handler and afterHandle hooks.
// The context is checked between stages so a cancelled request stops early.
func (r *Router) handle(c *Context, ri *routeInfo) (any, error) {
	var (
		payload   any
		responded bool
	)

	for _, hook := range ri.before {
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		res, err := hook(c)
		if err != nil {
			return nil, err
		}
		if res.Responded() {
			payload, responded = res.Value(), true
			break
		}
	}

	if !responded {
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if payload, err = ri.handler(c); err != nil {
			return nil, err
		}
	}

	for _, hook := range ri.after {
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		res, err := hook(c, payload)
		if err != nil {
			return nil, err
		}
		if res.Responded() {
			payload = res.Value()
			break
		}
	}

	return payload, c.ctx.Err()
}

func (r *Router) logFailure(c *Context, err error) {
	if ErrorStatus(err) < http.StatusInternalServerError {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.logger.WarnContext(c.ctx, "request aborted", "method", c.Method, "path", c.Path, "error", err)
		return
	}
	r.logger.LogAttrs(c.ctx, slog.LevelError, "unhandled error",
		slog.String("method", c.Method),
		slog.String("path", c.Path),
		slog.String("route", c.Route),
		slog.Any("error", err),
	)
}

func spanName(method string, ri *routeInfo) string {
	if ri == nil {
		return method
	}
	return method + " " + ri.pattern
}

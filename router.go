package gate

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Router holds the route table and the dispatcher configuration. Routes are
// registered first; the first dispatch freezes the table, after which it is
// read concurrently without locking. It implements http.Handler.
type Router struct {
	table      *routeTable
	routes     []*routeInfo
	middleware []Middleware

	title   string
	version string
	servers []Server

	errorHandler ErrorHandler
	logger       *slog.Logger
	observers    []Observer
	tracer       SpanStarter

	encoders []Encoder
	decoders []Decoder
	codecs   *codecRegistry

	timeout   time.Duration
	bodyLimit int64

	mu         sync.Mutex
	frozen     bool
	freezeOnce sync.Once
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

// WithServers sets the OpenAPI servers array.
func WithServers(servers ...Server) RouterOption {
	return func(r *Router) {
		r.servers = servers
	}
}

// ErrorHandler builds the response for a failed dispatch. Returning nil
// falls back to the default RFC 9457 problem response.
type ErrorHandler func(c *Context, err error) *Response

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithLogger sets the logger used for unhandled errors and recovered panics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithObserver registers observers notified once per dispatch.
func WithObserver(obs ...Observer) RouterOption {
	return func(r *Router) {
		r.observers = append(r.observers, obs...)
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.encoders = append(r.encoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.decoders = append(r.decoders, dec)
	}
}

// WithRequestTimeout bounds every dispatch. When the deadline passes, the
// remaining stages are skipped and the client receives 503.
func WithRequestTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		r.timeout = d
	}
}

// WithMaxBodySize sets the default maximum request body size in bytes.
// Routes may override it with WithBodyLimit.
func WithMaxBodySize(maxBytes int64) RouterOption {
	return func(r *Router) {
		r.bodyLimit = maxBytes
	}
}

// SpanStarter is a tracing hook interface for creating spans per request.
// The returned function ends the span with the final status and error.
// See the oteltrace package for an OpenTelemetry implementation.
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(status int, err error))
}

// WithTracer sets a tracing hook for the router.
func WithTracer(s SpanStarter) RouterOption {
	return func(r *Router) {
		r.tracer = s
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{
		table:  newRouteTable(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.codecs = newCodecRegistry(r.encoders, r.decoders)
	return r
}

// Use adds transport middleware. Middleware is applied in the order added,
// around the dispatcher.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(http.HandlerFunc(r.serve))
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

func (r *Router) serve(w http.ResponseWriter, req *http.Request) {
	resp := r.Dispatch(req.Context(), &Request{
		Method:     req.Method,
		Path:       req.URL.Path,
		RawQuery:   req.URL.RawQuery,
		Header:     req.Header,
		Body:       req.Body,
		RemoteAddr: req.RemoteAddr,
	})
	resp.write(w, req.Method == http.MethodHead)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// addRoute compiles the route's schemas and adds it to the table.
// Registration after the router has started dispatching is not supported.
func (r *Router) addRoute(ri routeInfo) {
	if ri.handler == nil {
		panic("gate: nil handler for " + ri.method + " " + ri.pattern)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		panic("gate: route " + ri.method + " " + ri.pattern + " registered after the router started serving")
	}

	ri.compile()
	r.table.add(&ri)
	r.routes = append(r.routes, &ri)
}

// freeze ends the registration phase.
func (r *Router) freeze() {
	r.freezeOnce.Do(func() {
		r.mu.Lock()
		r.frozen = true
		r.mu.Unlock()
	})
}

package gate

import "net/http"

// Middleware is the standard middleware signature. Router.Use wraps the
// dispatcher with it, so transport concerns (request IDs, auth proxies,
// instrumentation from other libraries) plug in unchanged.
type Middleware func(next http.Handler) http.Handler

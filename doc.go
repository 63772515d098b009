// Package gate is a schema-validated request dispatcher. Routes declare
// schemas for the query string, path parameters, headers, body and response,
// and every request runs one fixed lifecycle:
//
//	resolve → query → params → headers → body → beforeHandle → handler → afterHandle → response → serialize
//
// A request that fails a stage never reaches the next one. Validation
// failures become 400 problem responses (RFC 9457) naming the failing
// surface and every violation in it.
//
// Handlers receive a per-request Context and return a payload:
//
//	r := gate.New(gate.WithTitle("Users"), gate.WithVersion("1.0.0"))
//
//	gate.Get(r, "/users/:id", getUser,
//	    gate.WithParams(schema.Object(schema.Fields{"id": schema.Integer()})),
//	    gate.WithResponse(userSchema),
//	)
//
// Guards apply schemas and hooks to every route registered inside them:
//
//	r.Guard(func(g *gate.Group) {
//	    gate.Post(g, "/items", createItem, gate.WithBody(itemSchema))
//	}, gate.WithQuery(schema.Object(schema.Fields{"name": schema.String()})))
//
// Hooks short-circuit with Respond and pass with Continue:
//
//	gate.WithBeforeHandle(func(c *gate.Context) (gate.HookResult, error) {
//	    if c.Headers["x-cached"] == "1" {
//	        return gate.Respond("cached"), nil
//	    }
//	    return gate.Continue(), nil
//	})
//
// Routes are registered before serving; the first dispatch freezes the
// table. Router implements http.Handler, and Dispatch runs the lifecycle on
// a transport-neutral Request for other front ends.
//
// OpenAPI 3.1 documents are generated from the declared schemas:
//
//	r.ServeSpec("/openapi.json")
package gate

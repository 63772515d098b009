package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/bjaus/gate"
	"github.com/bjaus/gate/schema"
)

var (
	roleSchema = schema.String(schema.Enum("admin", "member"))

	userSchema = schema.Object(schema.Fields{
		"id":         schema.Integer(),
		"name":       schema.String(),
		"email":      schema.String(),
		"role":       roleSchema,
		"created_at": schema.String(),
	})

	idParams = schema.Object(schema.Fields{
		"id": schema.Integer(schema.Minimum(1)),
	})
)

type createUserBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newRouter(cfg Config, store *userStore, opts ...gate.RouterOption) *gate.Router {
	opts = append([]gate.RouterOption{
		gate.WithTitle("Sample API"),
		gate.WithVersion("1.0.0"),
		gate.WithServers(gate.Server{URL: "http://localhost:8080", Description: "local"}),
		gate.WithRequestTimeout(cfg.RequestTimeout),
		gate.WithMaxBodySize(cfg.MaxBodyBytes),
	}, opts...)
	r := gate.New(opts...)

	r.ServeSpec("/openapi.json")
	r.ServeSpecYAML("/openapi.yaml")
	r.ServeDocs("/docs")

	limit := gate.RateLimit(gate.RateLimitConfig{Rate: cfg.RateLimit, Burst: cfg.RateBurst})

	v1 := r.Group("/v1", gate.WithBeforeHandle(limit), gate.WithAfterHandle(stampVersion))

	gate.Get(v1, "/health", func(*gate.Context) (any, error) {
		return map[string]any{"status": "ok", "time": time.Now().UTC()}, nil
	},
		gate.WithSummary("Health check"),
		gate.WithTags("ops"),
	)

	gate.Get(v1, "/users", func(c *gate.Context) (any, error) {
		role, _ := c.Query["role"].(string)
		limit, _ := c.Query["limit"].(float64)
		return map[string]any{"users": store.list(role, int(limit))}, nil
	},
		gate.WithQuery(schema.Object(schema.Fields{
			"role":  schema.Optional(roleSchema),
			"limit": schema.Optional(schema.Integer(schema.Minimum(1), schema.Maximum(100))),
		})),
		gate.WithResponse(schema.Object(schema.Fields{"users": schema.Array(userSchema)})),
		gate.WithSummary("List users"),
		gate.WithTags("users"),
	)

	v1.Guard(func(g *gate.Group) {
		gate.Get(g, "/users/:id", func(c *gate.Context) (any, error) {
			id := intParam(c)
			u, ok := store.get(id)
			if !ok {
				return nil, gate.Errorf(http.StatusNotFound, "user %d not found", id)
			}
			return u, nil
		}, gate.WithSummary("Get user"))

		gate.Delete(g, "/users/:id", func(c *gate.Context) (any, error) {
			id := intParam(c)
			if !store.delete(id) {
				return nil, gate.Errorf(http.StatusNotFound, "user %d not found", id)
			}
			c.Status(http.StatusNoContent)
			return nil, nil
		},
			gate.WithBeforeHandle(requireAdmin(cfg.AdminToken)),
			gate.WithSummary("Delete user"),
		)

		gate.Put(g, "/users/:id", func(c *gate.Context) (any, error) {
			body, err := gate.Bind[createUserBody](c.Body)
			if err != nil {
				return nil, err
			}
			id := intParam(c)
			u, ok := store.update(id, body.Name, body.Email, body.Role)
			if !ok {
				return nil, gate.Errorf(http.StatusNotFound, "user %d not found", id)
			}
			return u, nil
		},
			gate.WithBeforeHandle(requireAdmin(cfg.AdminToken)),
			gate.WithBody(schema.Object(schema.Fields{
				"name":  schema.Optional(schema.String(schema.MinLength(1))),
				"email": schema.Optional(schema.String(schema.Pattern(`^[^@\s]+@[^@\s]+$`))),
				"role":  schema.Optional(roleSchema),
			})),
			gate.WithSummary("Update user"),
		)
	},
		gate.WithParams(idParams),
		gate.WithResponses(map[int]schema.Schema{http.StatusOK: userSchema}),
		gate.WithTags("users"),
	)

	gate.Post(v1, "/users", func(c *gate.Context) (any, error) {
		body, err := gate.Bind[createUserBody](c.Body)
		if err != nil {
			return nil, err
		}
		return store.create(body.Name, body.Email, body.Role), nil
	},
		gate.WithBeforeHandle(requireAdmin(cfg.AdminToken)),
		gate.WithStatus(http.StatusCreated),
		gate.WithBody(schema.Object(schema.Fields{
			"name":  schema.String(schema.MinLength(1), schema.MaxLength(100)),
			"email": schema.String(schema.Pattern(`^[^@\s]+@[^@\s]+$`)),
			"role":  roleSchema,
		})),
		gate.WithResponses(map[int]schema.Schema{http.StatusCreated: userSchema}),
		gate.WithSummary("Create user"),
		gate.WithTags("users"),
	)

	return r
}

// requireAdmin rejects requests without the admin bearer token.
func requireAdmin(token string) gate.BeforeHook {
	return func(c *gate.Context) (gate.HookResult, error) {
		got, ok := strings.CutPrefix(c.Header.Get("Authorization"), "Bearer ")
		if !ok || got != token {
			c.Set.Header.Set("WWW-Authenticate", `Bearer realm="sample"`)
			return gate.Continue(), gate.Error(http.StatusUnauthorized, "admin token required")
		}
		return gate.Continue(), nil
	}
}

func stampVersion(c *gate.Context, _ any) (gate.HookResult, error) {
	c.Set.Header.Set("X-API-Version", "1")
	return gate.Continue(), nil
}

func intParam(c *gate.Context) int {
	id, _ := c.Params["id"].(float64)
	return int(id)
}

package gate_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/gate"
	"github.com/bjaus/gate/schema"
)

func TestDispatch_validates_query(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Get(r, "/", func(c *gate.Context) (any, error) {
		return c.Query["name"], nil
	}, gate.WithQuery(schema.Object(schema.Fields{"name": schema.String()})))

	resp := call(t, r, http.MethodGet, "/?name=sucrose", "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "sucrose", string(resp.Body))
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))

	resp = call(t, r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusBadRequest, resp.Status)
	pd := problem(t, resp)
	assert.Equal(t, gate.SurfaceQuery, pd.Surface)
	assert.Equal(t, []string{"query.name"}, fields(pd))
	assert.Equal(t, "missing", pd.Errors[0].Actual)
}

func TestDispatch_validates_params(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Get(r, "/hi/:id/:name", func(c *gate.Context) (any, error) {
		return c.Params["name"], nil
	}, gate.WithParams(schema.Object(schema.Fields{
		"id":   schema.String(),
		"name": schema.String(),
	})))

	resp := call(t, r, http.MethodGet, "/hi/1/sucrose", "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "sucrose", string(resp.Body))
}

func TestDispatch_coerces_numeric_params(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Get(r, "/items/:id", func(c *gate.Context) (any, error) {
		id, ok := c.Params["id"].(float64)
		if !ok {
			return nil, errors.New("id not coerced")
		}
		return id * 2, nil
	}, gate.WithParams(schema.Object(schema.Fields{"id": schema.Integer()})))

	resp := call(t, r, http.MethodGet, "/items/21", "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "42", string(resp.Body))

	resp = call(t, r, http.MethodGet, "/items/abc", "")
	require.Equal(t, http.StatusBadRequest, resp.Status)
	pd := problem(t, resp)
	assert.Equal(t, gate.SurfaceParams, pd.Surface)
	assert.Equal(t, []string{"params.id"}, fields(pd))
}

func TestDispatch_validates_headers_ignoring_extras(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/", func(*gate.Context) (any, error) {
		return "welcome back", nil
	}, gate.WithHeaders(schema.Object(schema.Fields{"authorization": schema.String()})))

	resp := call(t, r, http.MethodPost, "/", "",
		"Authorization", "Bearer 123",
		"X-Forwarded-Ip", "127.0.0.1",
	)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "welcome back", string(resp.Body))

	resp = call(t, r, http.MethodPost, "/", "", "X-Forwarded-Ip", "127.0.0.1")
	require.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, gate.SurfaceHeaders, problem(t, resp).Surface)
}

func TestDispatch_validates_body(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/", func(c *gate.Context) (any, error) {
		return c.Body, nil
	}, gate.WithBody(schema.Object(schema.Fields{
		"username": schema.String(),
		"password": schema.String(),
	})))

	body := `{"username":"ceobe","password":"12345678"}`
	resp := call(t, r, http.MethodPost, "/", body)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, body, string(resp.Body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	resp = call(t, r, http.MethodPost, "/", `{"username":"ceobe"}`)
	require.Equal(t, http.StatusBadRequest, resp.Status)
	pd := problem(t, resp)
	assert.Equal(t, gate.SurfaceBody, pd.Surface)
	assert.Equal(t, []string{"body.password"}, fields(pd))
}

func TestDispatch_reports_every_body_violation(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/user", func(*gate.Context) (any, error) {
		return "ok", nil
	}, gate.WithBody(schema.Object(schema.Fields{
		"id":       schema.Number(),
		"username": schema.String(),
		"profile":  schema.Object(schema.Fields{"name": schema.String()}),
	})))

	resp := call(t, r, http.MethodPost, "/user", `{"id":"six","profile":{}}`)
	require.Equal(t, http.StatusBadRequest, resp.Status)

	pd := problem(t, resp)
	assert.Equal(t, []string{"body.id", "body.profile.name", "body.username"}, fields(pd))
	assert.Equal(t, "number", pd.Errors[0].Expected)
	assert.Equal(t, "string", pd.Errors[0].Actual)
}

func TestDispatch_malformed_body(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/strict", func(*gate.Context) (any, error) {
		return "ok", nil
	}, gate.WithBody(schema.Object(schema.Fields{"a": schema.String()})))
	gate.Post(r, "/lenient", func(c *gate.Context) (any, error) {
		raw, _ := c.Body.([]byte)
		return string(raw), nil
	})

	resp := call(t, r, http.MethodPost, "/strict", `{"a":`)
	require.Equal(t, http.StatusBadRequest, resp.Status)
	pd := problem(t, resp)
	assert.Equal(t, gate.SurfaceBody, pd.Surface)
	require.Len(t, pd.Errors, 1)
	assert.Equal(t, "malformed", pd.Errors[0].Actual)

	resp = call(t, r, http.MethodPost, "/strict", `{"a":"x"} not json at all`)
	require.Equal(t, http.StatusBadRequest, resp.Status)
	pd = problem(t, resp)
	assert.Equal(t, gate.SurfaceBody, pd.Surface)
	require.Len(t, pd.Errors, 1)
	assert.Equal(t, "malformed", pd.Errors[0].Actual)

	resp = call(t, r, http.MethodPost, "/strict", `{"a":"x"}{"a":"y"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = call(t, r, http.MethodPost, "/strict", "{\"a\":\"x\"}\n")
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = call(t, r, http.MethodPost, "/lenient", `{"a":`)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, `{"a":`, string(resp.Body))
}

func TestDispatch_unchecked_body_passes_through(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/", func(c *gate.Context) (any, error) {
		raw, ok := c.Body.([]byte)
		if !ok {
			return nil, errors.New("body was parsed")
		}
		return string(raw), nil
	})

	tests := map[string]struct {
		contentType string
		body        string
	}{
		"multipart without boundary": {contentType: "multipart/form-data", body: "hello"},
		"malformed form":             {contentType: "application/x-www-form-urlencoded", body: "a=%zz"},
		"unparsable content type":    {contentType: "text/", body: "hello"},
		"trailing json":              {contentType: "application/json", body: `{"a":1} tail`},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := call(t, r, http.MethodPost, "/", tc.body, "Content-Type", tc.contentType)
			require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
			assert.Equal(t, tc.body, string(resp.Body))
		})
	}
}

func TestDispatch_form_body_is_coerced(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/login", func(c *gate.Context) (any, error) {
		return c.Body, nil
	}, gate.WithBody(schema.Object(schema.Fields{
		"user":     schema.String(),
		"remember": schema.Boolean(),
		"age":      schema.Integer(),
	})))

	resp := r.Dispatch(context.Background(), &gate.Request{
		Method: http.MethodPost,
		Path:   "/login",
		Header: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
		Body:   strings.NewReader("user=ada&remember=true&age=36"),
	})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.JSONEq(t, `{"user":"ada","remember":true,"age":36}`, string(resp.Body))
}

func TestDispatch_multipart_body(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "report"))
	require.NoError(t, mw.WriteField("pages", "12"))
	fw, err := mw.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("contents"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := gate.New()
	gate.Post(r, "/upload", func(c *gate.Context) (any, error) {
		body := c.Body.(map[string]any)
		fh, ok := body["file"].(*multipart.FileHeader)
		if !ok {
			return nil, errors.New("file missing")
		}
		return map[string]any{
			"title": body["title"],
			"pages": body["pages"],
			"name":  fh.Filename,
			"size":  fh.Size,
		}, nil
	}, gate.WithBody(schema.Object(schema.Fields{
		"title": schema.String(),
		"pages": schema.Integer(),
		"file":  schema.Any(),
	})))

	resp := r.Dispatch(context.Background(), &gate.Request{
		Method: http.MethodPost,
		Path:   "/upload",
		Header: http.Header{"Content-Type": {mw.FormDataContentType()}},
		Body:   &buf,
	})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.JSONEq(t, `{"title":"report","pages":12,"name":"report.txt","size":8}`, string(resp.Body))
}

func TestDispatch_yaml_body(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/", func(c *gate.Context) (any, error) {
		return c.Body, nil
	}, gate.WithBody(schema.Object(schema.Fields{"count": schema.Integer()})))

	resp := r.Dispatch(context.Background(), &gate.Request{
		Method: http.MethodPost,
		Path:   "/",
		Header: http.Header{"Content-Type": {"application/yaml"}},
		Body:   strings.NewReader("count: 3\n"),
	})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.JSONEq(t, `{"count":3}`, string(resp.Body))
}

func TestDispatch_yaml_body_with_non_string_keys(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/", func(c *gate.Context) (any, error) {
		return c.Body, nil
	}, gate.WithBody(schema.Object(schema.Fields{
		"codes": schema.Object(schema.Fields{"404": schema.String()}),
	})))

	resp := r.Dispatch(context.Background(), &gate.Request{
		Method: http.MethodPost,
		Path:   "/",
		Header: http.Header{"Content-Type": {"application/yaml"}},
		Body:   strings.NewReader("codes:\n  404: missing\n  true: yes\n"),
	})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.JSONEq(t, `{"codes":{"404":"missing","true":"yes"}}`, string(resp.Body))
}

func TestDispatch_unsupported_media_type(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/", func(*gate.Context) (any, error) {
		return "ok", nil
	}, gate.WithBody(schema.Any()))

	resp := r.Dispatch(context.Background(), &gate.Request{
		Method: http.MethodPost,
		Path:   "/",
		Header: http.Header{"Content-Type": {"application/pdf"}},
		Body:   strings.NewReader("%PDF"),
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Status)
}

func TestDispatch_body_limit(t *testing.T) {
	t.Parallel()

	r := gate.New(gate.WithMaxBodySize(8))
	gate.Post(r, "/small", func(*gate.Context) (any, error) { return "ok", nil })
	gate.Post(r, "/large", func(*gate.Context) (any, error) { return "ok", nil }, gate.WithBodyLimit(64))

	resp := call(t, r, http.MethodPost, "/small", `{"name":"too long"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Status)

	resp = call(t, r, http.MethodPost, "/large", `{"name":"too long"}`)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestDispatch_validates_response(t *testing.T) {
	t.Parallel()

	const msg = "Mutsuki need correction 💢💢💢"

	r := gate.New()
	gate.Get(r, "/", func(*gate.Context) (any, error) {
		return msg, nil
	}, gate.WithResponse(schema.String()))
	gate.Get(r, "/invalid", func(*gate.Context) (any, error) {
		return 1, nil
	}, gate.WithResponse(schema.String()))

	resp := call(t, r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, msg, string(resp.Body))

	resp = call(t, r, http.MethodGet, "/invalid", "")
	require.Equal(t, http.StatusBadRequest, resp.Status)
	pd := problem(t, resp)
	assert.Equal(t, gate.SurfaceResponse, pd.Surface)
	assert.Equal(t, "string", pd.Errors[0].Expected)
	assert.Equal(t, "number", pd.Errors[0].Actual)
}

func TestDispatch_hooks_feed_response_validation(t *testing.T) {
	t.Parallel()

	const msg = "Mutsuki need correction 💢💢💢"

	handler := func(*gate.Context) (any, error) { return 1, nil }
	respondWith := func(v any) gate.BeforeHook {
		return func(*gate.Context) (gate.HookResult, error) { return gate.Respond(v), nil }
	}
	replaceWith := func(v any) gate.AfterHook {
		return func(*gate.Context, any) (gate.HookResult, error) { return gate.Respond(v), nil }
	}
	pass := func(*gate.Context) (gate.HookResult, error) { return gate.Continue(), nil }

	tests := map[string]struct {
		opts   []gate.RouteOption
		status int
		body   string
	}{
		"beforeHandle valid": {
			opts:   []gate.RouteOption{gate.WithBeforeHandle(respondWith(msg))},
			status: http.StatusOK,
			body:   msg,
		},
		"beforeHandle invalid": {
			opts:   []gate.RouteOption{gate.WithBeforeHandle(respondWith(1))},
			status: http.StatusBadRequest,
		},
		"afterHandle valid": {
			opts:   []gate.RouteOption{gate.WithAfterHandle(replaceWith(msg))},
			status: http.StatusOK,
			body:   msg,
		},
		"afterHandle invalid": {
			opts:   []gate.RouteOption{gate.WithAfterHandle(replaceWith(1))},
			status: http.StatusBadRequest,
		},
		"passing beforeHandle with afterHandle": {
			opts: []gate.RouteOption{
				gate.WithBeforeHandle(pass),
				gate.WithAfterHandle(replaceWith(msg)),
			},
			status: http.StatusOK,
			body:   msg,
		},
		"handler result without hooks": {
			status: http.StatusBadRequest,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := gate.New()
			gate.Get(r, "/", handler, append(tc.opts, gate.WithResponse(schema.String()))...)

			resp := call(t, r, http.MethodGet, "/", "")
			assert.Equal(t, tc.status, resp.Status)
			if tc.body != "" {
				assert.Equal(t, tc.body, string(resp.Body))
			}
		})
	}
}

func TestDispatch_response_per_status(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Post(r, "/", func(c *gate.Context) (any, error) {
		body, _ := c.Body.(map[string]any)
		status, _ := body["status"].(float64)
		c.Status(int(status))
		return body["response"], nil
	},
		gate.WithBody(schema.Object(schema.Fields{
			"status":   schema.Number(),
			"response": schema.Any(),
		})),
		gate.WithResponses(map[int]schema.Schema{
			http.StatusOK:      schema.String(),
			http.StatusCreated: schema.Number(),
		}),
	)

	tests := map[string]struct {
		body   string
		status int
	}{
		"200 valid":         {body: `{"status":200,"response":"String"}`, status: http.StatusOK},
		"200 invalid":       {body: `{"status":200,"response":1}`, status: http.StatusBadRequest},
		"201 valid":         {body: `{"status":201,"response":1}`, status: http.StatusCreated},
		"201 invalid":       {body: `{"status":201,"response":"String"}`, status: http.StatusBadRequest},
		"undeclared status": {body: `{"status":202,"response":true}`, status: http.StatusAccepted},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			resp := call(t, r, http.MethodPost, "/", tc.body)
			assert.Equal(t, tc.status, resp.Status, string(resp.Body))
		})
	}
}

func TestDispatch_stage_order(t *testing.T) {
	t.Parallel()

	var ran atomic.Bool
	r := gate.New()
	gate.Post(r, "/:id", func(*gate.Context) (any, error) {
		ran.Store(true)
		return "ok", nil
	},
		gate.WithQuery(schema.Object(schema.Fields{"q": schema.String()})),
		gate.WithParams(schema.Object(schema.Fields{"id": schema.Integer()})),
		gate.WithHeaders(schema.Object(schema.Fields{"x-key": schema.String()})),
		gate.WithBody(schema.Object(schema.Fields{"n": schema.Number()})),
		gate.WithBeforeHandle(func(*gate.Context) (gate.HookResult, error) {
			ran.Store(true)
			return gate.Continue(), nil
		}),
	)

	tests := map[string]struct {
		target  string
		body    string
		header  []string
		surface gate.Surface
	}{
		"query first":     {target: "/x", body: `{}`, surface: gate.SurfaceQuery},
		"then params":     {target: "/x?q=1", body: `{}`, surface: gate.SurfaceParams},
		"then headers":    {target: "/1?q=1", body: `{}`, surface: gate.SurfaceHeaders},
		"then body":       {target: "/1?q=1", body: `{}`, header: []string{"X-Key", "k"}, surface: gate.SurfaceBody},
		"wrong body type": {target: "/1?q=1", body: `{"n":"x"}`, header: []string{"X-Key", "k"}, surface: gate.SurfaceBody},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			resp := call(t, r, http.MethodPost, tc.target, tc.body, tc.header...)
			require.Equal(t, http.StatusBadRequest, resp.Status)
			assert.Equal(t, tc.surface, problem(t, resp).Surface)
		})
	}
	assert.False(t, ran.Load(), "no hook or handler runs after a validation failure")
}

func TestDispatch_before_hooks_short_circuit(t *testing.T) {
	t.Parallel()

	var calls []string
	r := gate.New()
	gate.Get(r, "/", func(*gate.Context) (any, error) {
		calls = append(calls, "handler")
		return "handler", nil
	},
		gate.WithBeforeHandle(
			func(*gate.Context) (gate.HookResult, error) {
				calls = append(calls, "first")
				return gate.Continue(), nil
			},
			func(*gate.Context) (gate.HookResult, error) {
				calls = append(calls, "second")
				return gate.Respond("cached"), nil
			},
			func(*gate.Context) (gate.HookResult, error) {
				calls = append(calls, "third")
				return gate.Continue(), nil
			},
		),
		gate.WithAfterHandle(func(_ *gate.Context, payload any) (gate.HookResult, error) {
			calls = append(calls, "after:"+payload.(string))
			return gate.Continue(), nil
		}),
	)

	resp := call(t, r, http.MethodGet, "/", "")
	assert.Equal(t, "cached", string(resp.Body))
	assert.Equal(t, []string{"first", "second", "after:cached"}, calls)
}

func TestDispatch_after_hooks_short_circuit(t *testing.T) {
	t.Parallel()

	var calls int
	r := gate.New()
	gate.Get(r, "/", func(*gate.Context) (any, error) { return "a", nil },
		gate.WithAfterHandle(
			func(_ *gate.Context, p any) (gate.HookResult, error) {
				calls++
				return gate.Respond(p.(string) + "b"), nil
			},
			func(*gate.Context, any) (gate.HookResult, error) {
				calls++
				return gate.Respond("never"), nil
			},
		),
	)

	resp := call(t, r, http.MethodGet, "/", "")
	assert.Equal(t, "ab", string(resp.Body))
	assert.Equal(t, 1, calls)
}

func TestDispatch_respond_nil_is_a_payload(t *testing.T) {
	t.Parallel()

	var handled bool
	r := gate.New()
	gate.Get(r, "/", func(*gate.Context) (any, error) {
		handled = true
		return "x", nil
	}, gate.WithBeforeHandle(func(c *gate.Context) (gate.HookResult, error) {
		c.Status(http.StatusNoContent)
		return gate.Respond(nil), nil
	}))

	resp := call(t, r, http.MethodGet, "/", "")
	assert.False(t, handled)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Empty(t, resp.Body)
}

func TestDispatch_errors(t *testing.T) {
	t.Parallel()

	r := gate.New(gate.WithLogger(discardLogger()))
	gate.Get(r, "/plain", func(*gate.Context) (any, error) {
		return nil, errors.New("dsn=postgres://secret")
	})
	gate.Get(r, "/teapot", func(*gate.Context) (any, error) {
		return nil, gate.Error(http.StatusTeapot, "short and stout")
	})
	gate.Get(r, "/panic", func(*gate.Context) (any, error) {
		panic("boom")
	})
	gate.Get(r, "/hook", func(*gate.Context) (any, error) {
		return "unreachable", nil
	}, gate.WithBeforeHandle(func(*gate.Context) (gate.HookResult, error) {
		return gate.Continue(), &gate.ProblemDetail{Status: http.StatusForbidden, Title: "Forbidden", Detail: "nope"}
	}))

	tests := map[string]struct {
		path   string
		status int
		detail string
	}{
		"unclassified error hides detail": {path: "/plain", status: http.StatusInternalServerError},
		"status error":                    {path: "/teapot", status: http.StatusTeapot, detail: "short and stout"},
		"panic":                           {path: "/panic", status: http.StatusInternalServerError},
		"problem from hook":               {path: "/hook", status: http.StatusForbidden, detail: "nope"},
		"not found":                       {path: "/missing", status: http.StatusNotFound, detail: "route not found: GET /missing"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			resp := call(t, r, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.status, resp.Status)
			pd := problem(t, resp)
			assert.Equal(t, tc.status, pd.Status)
			assert.Equal(t, tc.detail, pd.Detail)
		})
	}
}

func TestDispatch_error_handler(t *testing.T) {
	t.Parallel()

	r := gate.New(gate.WithErrorHandler(func(c *gate.Context, err error) *gate.Response {
		if !errors.Is(err, gate.ErrNotFound) {
			return nil
		}
		return &gate.Response{
			Status: http.StatusNotFound,
			Header: http.Header{"Content-Type": {"text/plain"}},
			Body:   []byte("no such page: " + c.Path),
		}
	}))
	gate.Get(r, "/fail", func(*gate.Context) (any, error) {
		return nil, gate.Error(http.StatusConflict, "conflict")
	})

	resp := call(t, r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "no such page: /nowhere", string(resp.Body))

	resp = call(t, r, http.MethodGet, "/fail", "")
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, "conflict", problem(t, resp).Detail)
}

func TestDispatch_error_handler_without_status(t *testing.T) {
	t.Parallel()

	r := gate.New(gate.WithErrorHandler(func(*gate.Context, error) *gate.Response {
		return &gate.Response{Body: []byte("failed")}
	}))
	gate.Get(r, "/fail", func(*gate.Context) (any, error) {
		return nil, errors.New("boom")
	})

	resp := call(t, r, http.MethodGet, "/fail", "")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)

	srv := newServer(t, r)
	httpResp, body := doRequest(t, http.MethodGet, srv.URL+"/fail", "", nil)
	assert.Equal(t, http.StatusInternalServerError, httpResp.StatusCode)
	assert.Equal(t, "failed", string(body))
}

func TestDispatch_timeout(t *testing.T) {
	t.Parallel()

	r := gate.New(gate.WithRequestTimeout(20*time.Millisecond), gate.WithLogger(discardLogger()))
	gate.Get(r, "/slow", func(c *gate.Context) (any, error) {
		select {
		case <-c.Context().Done():
			return nil, c.Context().Err()
		case <-time.After(time.Second):
			return "late", nil
		}
	})

	resp := call(t, r, http.MethodGet, "/slow", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
}

func TestDispatch_cancelled_context(t *testing.T) {
	t.Parallel()

	var ran bool
	r := gate.New(gate.WithLogger(discardLogger()))
	gate.Get(r, "/", func(*gate.Context) (any, error) {
		ran = true
		return "ok", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := r.Dispatch(ctx, &gate.Request{Method: http.MethodGet, Path: "/"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.False(t, ran)
}

func TestDispatch_head_falls_back_to_get(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Get(r, "/doc", func(*gate.Context) (any, error) { return "body", nil })

	resp := call(t, r, http.MethodHead, "/doc", "")
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestDispatch_head_prefers_get_over_all(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.All(r, "/*", func(*gate.Context) (any, error) { return "all", nil })
	gate.Get(r, "/doc", func(*gate.Context) (any, error) { return "get", nil })
	gate.Head(r, "/head", func(*gate.Context) (any, error) { return "head", nil })

	tests := map[string]struct {
		path string
		body string
	}{
		"head route":   {path: "/head", body: "head"},
		"get fallback": {path: "/doc", body: "get"},
		"all last":     {path: "/other", body: "all"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := call(t, r, http.MethodHead, tc.path, "")
			require.Equal(t, http.StatusOK, resp.Status)
			assert.Equal(t, tc.body, string(resp.Body))
		})
	}
}

type (
	label string
	flag  bool
	count int
)

func TestDispatch_serialization(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Get(r, "/bytes", func(*gate.Context) (any, error) { return []byte{0x1, 0x2}, nil })
	gate.Get(r, "/bool", func(*gate.Context) (any, error) { return true, nil })
	gate.Get(r, "/json-string", func(c *gate.Context) (any, error) {
		c.Set.Header.Set("Content-Type", "application/json")
		return "quoted", nil
	})
	gate.Get(r, "/label", func(*gate.Context) (any, error) { return label("hi"), nil },
		gate.WithResponse(schema.String()))
	gate.Get(r, "/flag", func(*gate.Context) (any, error) { return flag(false), nil },
		gate.WithResponse(schema.Boolean()))
	gate.Get(r, "/count", func(*gate.Context) (any, error) { return count(7), nil },
		gate.WithResponse(schema.Integer()))
	gate.Get(r, "/struct", func(*gate.Context) (any, error) {
		return struct {
			Name string `json:"name"`
		}{Name: "ada"}, nil
	})

	tests := map[string]struct {
		path        string
		accept      string
		contentType string
		body        string
	}{
		"bytes":        {path: "/bytes", contentType: "application/octet-stream", body: "\x01\x02"},
		"bool":         {path: "/bool", contentType: "text/plain; charset=utf-8", body: "true"},
		"named string": {path: "/label", contentType: "text/plain; charset=utf-8", body: "hi"},
		"named bool":   {path: "/flag", contentType: "text/plain; charset=utf-8", body: "false"},
		"named int":    {path: "/count", contentType: "text/plain; charset=utf-8", body: "7"},
		"preset json":  {path: "/json-string", contentType: "application/json", body: "\"quoted\"\n"},
		"struct":       {path: "/struct", contentType: "application/json", body: "{\"name\":\"ada\"}\n"},
		"struct yaml":  {path: "/struct", accept: "application/yaml", contentType: "application/yaml", body: "name: ada\n"},
		"unmatched ok": {path: "/struct", accept: "image/png", contentType: "application/json", body: "{\"name\":\"ada\"}\n"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var header []string
			if tc.accept != "" {
				header = []string{"Accept", tc.accept}
			}
			resp := call(t, r, http.MethodGet, tc.path, "", header...)
			require.Equal(t, http.StatusOK, resp.Status)
			assert.Equal(t, tc.contentType, resp.Header.Get("Content-Type"))
			assert.Equal(t, tc.body, string(resp.Body))
		})
	}
}

func TestDispatch_concurrent(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Get(r, "/echo/:n", func(c *gate.Context) (any, error) {
		return c.Params["n"], nil
	}, gate.WithParams(schema.Object(schema.Fields{"n": schema.String()})))

	const workers = 32
	errs := make(chan error, workers)
	for i := range workers {
		go func() {
			n := strings.Repeat("x", i+1)
			resp := r.Dispatch(context.Background(), &gate.Request{Method: http.MethodGet, Path: "/echo/" + n})
			if string(resp.Body) != n {
				errs <- errors.New("cross-talk: got " + string(resp.Body))
				return
			}
			errs <- nil
		}()
	}
	for range workers {
		require.NoError(t, <-errs)
	}
}

func TestDispatch_register_after_serving_panics(t *testing.T) {
	t.Parallel()

	r := gate.New()
	gate.Get(r, "/", func(*gate.Context) (any, error) { return "ok", nil })
	call(t, r, http.MethodGet, "/", "")

	assert.Panics(t, func() {
		gate.Get(r, "/late", func(*gate.Context) (any, error) { return "ok", nil })
	})
}

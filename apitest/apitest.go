// Package apitest provides test helpers for gate routers.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bjaus/gate"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
}

// NewClient creates a test client from a router.
func NewClient(t testing.TB, r *gate.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a received response with its body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// Decode unmarshals the JSON body into v, failing the test on error.
func (r *Response) Decode(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("apitest: decode %q: %v", r.Body, err)
	}
}

// Problem decodes an RFC 9457 problem body.
func (r *Response) Problem(t testing.TB) gate.ProblemDetail {
	t.Helper()
	var pd gate.ProblemDetail
	r.Decode(t, &pd)
	return pd
}

// RequestOption customizes an outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// Get sends a GET request.
func (c *Client) Get(t testing.TB, path string, opts ...RequestOption) *Response {
	t.Helper()
	return c.Do(t, http.MethodGet, path, nil, opts...)
}

// Post sends a POST request with body encoded as JSON.
func (c *Client) Post(t testing.TB, path string, body any, opts ...RequestOption) *Response {
	t.Helper()
	return c.Do(t, http.MethodPost, path, body, opts...)
}

// Put sends a PUT request with body encoded as JSON.
func (c *Client) Put(t testing.TB, path string, body any, opts ...RequestOption) *Response {
	t.Helper()
	return c.Do(t, http.MethodPut, path, body, opts...)
}

// Delete sends a DELETE request.
func (c *Client) Delete(t testing.TB, path string, opts ...RequestOption) *Response {
	t.Helper()
	return c.Do(t, http.MethodDelete, path, nil, opts...)
}

// Do sends a request. A non-nil body is encoded as JSON unless it is a
// string or []byte, which are sent as is; set Content-Type with WithHeader
// for those.
func (c *Client) Do(t testing.TB, method, path string, body any, opts ...RequestOption) *Response {
	t.Helper()

	var (
		reqBody io.Reader
		isJSON  bool
	)
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = bytes.NewReader([]byte(b))
	case []byte:
		reqBody = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("apitest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
		isJSON = true
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   raw,
	}
}

// Dispatch runs req through r without a network round trip.
func Dispatch(t testing.TB, r *gate.Router, req *gate.Request) *gate.Response {
	t.Helper()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	return r.Dispatch(context.Background(), req)
}

package gate_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjaus/gate"
)

// call dispatches method and target ("/path?query") with an optional JSON
// body. Extra header pairs follow the body.
func call(t *testing.T, r *gate.Router, method, target, body string, header ...string) *gate.Response {
	t.Helper()

	path, query, _ := strings.Cut(target, "?")
	req := &gate.Request{
		Method:     method,
		Path:       path,
		RawQuery:   query,
		Header:     make(http.Header),
		RemoteAddr: "192.0.2.1:1234",
	}
	if body != "" {
		req.Body = strings.NewReader(body)
		req.Header.Set("Content-Type", "application/json")
	}
	require.Zero(t, len(header)%2, "header pairs")
	for i := 0; i < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp := r.Dispatch(context.Background(), req)
	require.NotNil(t, resp)
	return resp
}

func problem(t *testing.T, resp *gate.Response) gate.ProblemDetail {
	t.Helper()
	require.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"), string(resp.Body))
	var pd gate.ProblemDetail
	require.NoError(t, json.Unmarshal(resp.Body, &pd))
	return pd
}

func fields(pd gate.ProblemDetail) []string {
	out := make([]string, len(pd.Errors))
	for i, e := range pd.Errors {
		out[i] = e.Field
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T, r *gate.Router) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

package gate

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/bjaus/gate/schema"
)

// maxMultipartMemory is the maximum memory used for multipart form parsing (32 MB).
const maxMultipartMemory = 32 << 20

// Request is the transport-neutral description of an incoming request.
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Header     http.Header
	Body       io.Reader
	RemoteAddr string
}

// parseQuery flattens a raw query string into key → text. Repeated keys keep
// their first value unless the declared field is an array, in which case
// every value is kept.
func parseQuery(raw string, decl *schema.Schema) map[string]any {
	values, _ := url.ParseQuery(raw) //nolint:errcheck // malformed pairs are skipped
	return flatten(values, decl)
}

func flatten(values url.Values, decl *schema.Schema) map[string]any {
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		if wantsList(decl, k) {
			out[k] = vs
			continue
		}
		out[k] = vs[0]
	}
	return out
}

func wantsList(decl *schema.Schema, field string) bool {
	if decl == nil {
		return false
	}
	f, ok := decl.Field(field)
	return ok && f.Kind() == schema.KindArray
}

// headerMap lower-cases header names and joins repeated values.
func headerMap(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, vs := range h {
		out[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return out
}

func paramMap(params map[string]string) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// readBody reads at most limit bytes (no limit when limit <= 0).
func readBody(body io.Reader, limit int64) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if limit > 0 {
		body = io.LimitReader(body, limit+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if limit > 0 && int64(len(raw)) > limit {
		return nil, ErrBodyTooLarge
	}
	return raw, nil
}

// parsedBody is a decoded request body. Textual bodies (forms) are coerced
// by the body schema; structured bodies are checked as they are.
type parsedBody struct {
	value   any
	textual bool
	cleanup func() error
}

// parseBody decodes raw according to its content type:
//
//   - JSON (and +json), YAML and user decoders produce a value tree;
//   - url-encoded and multipart forms produce a map of field → text;
//   - text/* produces a string;
//   - anything else is passed through as []byte.
//
// When strict is set (the route declares a body schema), undecodable bodies
// fail body validation and unknown or unparsable media types fail with
// ErrUnsupportedMediaType; otherwise the raw bytes pass through unchecked.
func (cr *codecRegistry) parseBody(contentType string, raw []byte, decl *schema.Schema, strict bool) (parsedBody, error) {
	if len(raw) == 0 {
		return parsedBody{}, nil
	}

	var (
		mediaType string
		params    map[string]string
	)
	if contentType != "" {
		var err error
		mediaType, params, err = mime.ParseMediaType(contentType)
		if err != nil {
			if !strict {
				return parsedBody{value: raw}, nil
			}
			return parsedBody{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
		}
	}

	if dec, ok := cr.decoderFor(mediaType); ok {
		var v any
		if err := dec.Decode(bytes.NewReader(raw), &v); err != nil {
			if !strict {
				return parsedBody{value: raw}, nil
			}
			return parsedBody{}, malformed(dec.ContentType(), err)
		}
		return parsedBody{value: v}, nil
	}

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			if !strict {
				return parsedBody{value: raw}, nil
			}
			return parsedBody{}, malformed(mediaType, err)
		}
		return parsedBody{value: flatten(values, decl), textual: true}, nil

	case mediaType == "multipart/form-data":
		form, err := multipart.NewReader(bytes.NewReader(raw), params["boundary"]).ReadForm(maxMultipartMemory)
		if err != nil {
			if !strict {
				return parsedBody{value: raw}, nil
			}
			return parsedBody{}, malformed(mediaType, err)
		}
		v := flatten(form.Value, decl)
		for name, files := range form.File {
			if len(files) > 0 {
				v[name] = files[0]
			}
		}
		return parsedBody{value: v, textual: true, cleanup: form.RemoveAll}, nil

	case strings.HasPrefix(mediaType, "text/"):
		return parsedBody{value: string(raw)}, nil
	}

	if strict {
		return parsedBody{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}
	return parsedBody{value: raw}, nil
}

// malformed reports an undecodable body as a body validation failure.
func malformed(format string, err error) error {
	return &ValidationFailed{
		Surface: SurfaceBody,
		Violations: []schema.Violation{{
			Expected: format,
			Actual:   "malformed",
			Message:  err.Error(),
		}},
	}
}

package gate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// Response is the transport-neutral result of a dispatch.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// write copies the response to w. HEAD requests get headers only.
func (resp *Response) write(w http.ResponseWriter, headOnly bool) {
	h := w.Header()
	for k, vs := range resp.Header {
		h[k] = vs
	}
	if resp.Body != nil {
		h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.WriteHeader(resp.Status)
	if headOnly || len(resp.Body) == 0 {
		return
	}
	//nolint:errcheck,gosec // best-effort after WriteHeader
	w.Write(resp.Body)
}

// serialize renders the final payload using the status and headers set on
// the context:
//
//   - nil produces an empty body;
//   - strings, numbers and booleans are written as text/plain, or as JSON
//     when the Content-Type was explicitly set to JSON;
//   - []byte is written as application/octet-stream;
//   - everything else goes through the encoder negotiated from accept.
func (r *Router) serialize(c *Context, accept string, payload any) (*Response, error) {
	resp := &Response{
		Status: c.Set.Status,
		Header: c.Set.Header.Clone(),
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	if payload == nil {
		return resp, nil
	}

	preset := resp.Header.Get("Content-Type")

	if b, ok := payload.([]byte); ok {
		resp.Body = b
		setDefault(resp.Header, "Content-Type", "application/octet-stream")
		return resp, nil
	}

	if text, ok := scalarText(payload); ok && !isJSONType(preset) {
		resp.Body = []byte(text)
		setDefault(resp.Header, "Content-Type", "text/plain; charset=utf-8")
		return resp, nil
	}

	var enc Encoder = jsonCodec{}
	if !isJSONType(preset) {
		enc, _ = r.codecs.negotiate(accept)
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, payload); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	resp.Body = buf.Bytes()
	setDefault(resp.Header, "Content-Type", enc.ContentType())
	return resp, nil
}

// fail converts err into the single response the client receives.
func (r *Router) fail(c *Context, err error) *Response {
	if r.errorHandler != nil {
		if resp := r.errorHandler(c, err); resp != nil {
			if resp.Status == 0 {
				resp.Status = http.StatusInternalServerError
			}
			return resp
		}
	}

	pd := problemFor(err)

	header := make(http.Header)
	if c != nil {
		header = c.Set.Header.Clone()
	}
	header.Set("Content-Type", "application/problem+json")

	body, mErr := json.Marshal(pd)
	if mErr != nil {
		// Violation values are user data and may not marshal.
		for i := range pd.Errors {
			pd.Errors[i].Value = nil
		}
		body, _ = json.Marshal(pd) //nolint:errcheck,errchkjson // remaining fields are plain
	}

	return &Response{Status: pd.Status, Header: header, Body: body}
}

// scalarText formats strings, booleans and numbers as plain text.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	}

	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	default:
		return "", false
	}
}

func isJSONType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func setDefault(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}

// normalize converts a payload into the value tree schemas check: scalars
// of named types become their underlying string, bool or float64, []byte
// becomes a string, and everything else is passed through its JSON
// representation.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, json.Number:
		return v, nil
	case []byte:
		return string(t), nil
	}

	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

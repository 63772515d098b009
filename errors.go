package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bjaus/gate/schema"
)

// Sentinel errors produced by the dispatcher.
var (
	ErrNotFound             = errors.New("route not found")
	ErrBodyTooLarge         = errors.New("request body too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// Surface names an independently validated part of a request or response.
type Surface string

const (
	SurfaceQuery    Surface = "query"
	SurfaceParams   Surface = "params"
	SurfaceHeaders  Surface = "headers"
	SurfaceBody     Surface = "body"
	SurfaceResponse Surface = "response"
)

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string            `json:"type,omitempty" yaml:"type,omitempty"`
	Title    string            `json:"title,omitempty" yaml:"title,omitempty"`
	Status   int               `json:"status" yaml:"status"`
	Detail   string            `json:"detail,omitempty" yaml:"detail,omitempty"`
	Instance string            `json:"instance,omitempty" yaml:"instance,omitempty"`
	Surface  Surface           `json:"surface,omitempty" yaml:"surface,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field    string `json:"field" yaml:"field"`
	Message  string `json:"message" yaml:"message"`
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual   string `json:"actual,omitempty" yaml:"actual,omitempty"`
	Value    any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// ValidationFailed reports that one surface did not match its schema.
type ValidationFailed struct {
	Surface    Surface
	Violations []schema.Violation
}

// Error summarizes the failure.
func (e *ValidationFailed) Error() string {
	return fmt.Sprintf("invalid %s: %d violation(s)", e.Surface, len(e.Violations))
}

// StatusCode returns 400.
func (e *ValidationFailed) StatusCode() int { return http.StatusBadRequest }

// Problem converts the failure into an RFC 9457 problem.
func (e *ValidationFailed) Problem() *ProblemDetail {
	errs := make([]ValidationError, len(e.Violations))
	for i, v := range e.Violations {
		field := string(e.Surface)
		if v.Path != "" {
			field += "." + v.Path
		}
		errs[i] = ValidationError{
			Field:    field,
			Message:  v.Message,
			Expected: v.Expected,
			Actual:   v.Actual,
			Value:    v.Value,
		}
	}
	return &ProblemDetail{
		Type:    "about:blank",
		Title:   "Validation Failed",
		Status:  http.StatusBadRequest,
		Detail:  e.Error(),
		Surface: e.Surface,
		Errors:  errs,
	}
}

func invalid(surface Surface, res schema.Result) error {
	return &ValidationFailed{Surface: surface, Violations: res.Violations}
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Errors that carry
// no status map to http.StatusInternalServerError.
func ErrorStatus(err error) int {
	var sc StatusCoder
	switch {
	case errors.As(err, &sc):
		return sc.StatusCode()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// problemFor converts any error into the problem written to the client.
// Unclassified failures never leak their message.
func problemFor(err error) *ProblemDetail {
	var pd *ProblemDetail
	if errors.As(err, &pd) {
		return pd
	}

	var vf *ValidationFailed
	if errors.As(err, &vf) {
		return vf.Problem()
	}

	status := ErrorStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = ""
	}

	return &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

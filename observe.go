package gate

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Outcome classifies how a dispatch ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeInvalid  Outcome = "validation_failed"
	OutcomeError    Outcome = "error"
)

// DispatchEvent describes one completed dispatch.
type DispatchEvent struct {
	Method    string
	Path      string
	Route     string // matched pattern, empty when no route matched
	Status    int
	Outcome   Outcome
	Surface   Surface // failing surface when Outcome is OutcomeInvalid
	Err       error
	RequestID string
	Size      int
	Duration  time.Duration
}

// Observer is notified once per dispatch, after the response is built.
// Observers run on the request goroutine and must be safe for concurrent use.
type Observer interface {
	ObserveDispatch(ctx context.Context, ev DispatchEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev DispatchEvent)

// ObserveDispatch calls f.
func (f ObserverFunc) ObserveDispatch(ctx context.Context, ev DispatchEvent) { f(ctx, ev) }

func (r *Router) observe(c *Context, resp *Response, err error, d time.Duration) {
	if len(r.observers) == 0 {
		return
	}

	ev := DispatchEvent{
		Method:    c.Method,
		Path:      c.Path,
		Route:     c.Route,
		Status:    resp.Status,
		Outcome:   outcomeOf(err),
		Err:       err,
		RequestID: GetRequestID(c.ctx),
		Size:      len(resp.Body),
		Duration:  d,
	}
	var vf *ValidationFailed
	if errors.As(err, &vf) {
		ev.Surface = vf.Surface
	}

	for _, o := range r.observers {
		o.ObserveDispatch(c.ctx, ev)
	}
}

func outcomeOf(err error) Outcome {
	var vf *ValidationFailed
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.As(err, &vf):
		return OutcomeInvalid
	case ErrorStatus(err) < http.StatusInternalServerError:
		// Client errors raised by hooks (rate limits, auth) are handled
		// outcomes, not failures.
		return OutcomeOK
	default:
		return OutcomeError
	}
}

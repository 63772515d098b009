package gate

// Handler produces the response payload for a matched route. The returned
// value is serialized according to its type; see Router.Dispatch.
type Handler func(c *Context) (any, error)

// BeforeHook runs after request validation and before the handler. Returning
// Respond short-circuits the handler and every later beforeHandle hook.
type BeforeHook func(c *Context) (HookResult, error)

// AfterHook runs after the handler (or a short-circuiting beforeHandle hook)
// with the current payload. Returning Respond replaces the payload and skips
// the remaining afterHandle hooks.
type AfterHook func(c *Context, payload any) (HookResult, error)

// HookResult tells the dispatcher whether a hook abstained or produced a
// payload. A produced payload may itself be nil.
type HookResult struct {
	value     any
	responded bool
}

// Continue lets the pipeline proceed unchanged.
func Continue() HookResult { return HookResult{} }

// Respond makes v the response payload.
func Respond(v any) HookResult { return HookResult{value: v, responded: true} }

// Responded reports whether the hook produced a payload.
func (h HookResult) Responded() bool { return h.responded }

// Value returns the produced payload.
func (h HookResult) Value() any { return h.value }

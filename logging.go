package gate

import (
	"context"
	"log/slog"
)

// LogObserver returns an Observer that logs each dispatch using the provided
// slog.Logger. Server errors log at error level, client errors at warn level
// and everything else at info level.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(ctx context.Context, ev DispatchEvent) {
		attrs := []slog.Attr{
			slog.String("method", ev.Method),
			slog.String("path", ev.Path),
			slog.Int("status", ev.Status),
			slog.String("outcome", string(ev.Outcome)),
			slog.Duration("latency", ev.Duration),
			slog.Int("size", ev.Size),
		}

		if ev.Route != "" {
			attrs = append(attrs, slog.String("route", ev.Route))
		}
		if ev.Surface != "" {
			attrs = append(attrs, slog.String("surface", string(ev.Surface)))
		}
		if ev.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", ev.RequestID))
		}

		level := slog.LevelInfo
		switch {
		case ev.Status >= 500:
			level = slog.LevelError
		case ev.Status >= 400:
			level = slog.LevelWarn
		}

		logger.LogAttrs(ctx, level, "request", attrs...)
	})
}

// wrap.go provides the handler wrappers that funnel an operation's failure
// through the Handler before handing it back to the caller.

package deskerr

import (
	"context"
	"log/slog"
)

// Call runs fn and returns its result. On failure the error is handled
// (without console logging, recording name and args) and, once handling has
// finished, the original error is returned.
func Call[T any](ctx context.Context, h *Handler, name string, fn func(ctx context.Context) (T, error), args ...any) (T, error) {
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	if herr := h.HandleError(ctx, false, err, callMore(name, args)); herr != nil {
		h.logger.Warn("deskerr: handling failed",
			slog.String("function", name),
			slog.String("error", herr.Error()),
		)
	}
	return result, err
}

// CallDetached runs the synchronous fn and returns its result and error to
// the caller immediately. Handling runs in the background; use Handler.Wait
// to wait for it. The handling context is detached from ctx's cancellation.
func CallDetached[T any](ctx context.Context, h *Handler, name string, fn func() (T, error), args ...any) (T, error) {
	result, err := fn()
	if err == nil {
		return result, nil
	}

	detached := context.WithoutCancel(ctx)
	more := callMore(name, args)
	h.goDetached(func() {
		if herr := h.HandleError(detached, false, err, more); herr != nil {
			h.logger.Warn("deskerr: detached handling failed",
				slog.String("function", name),
				slog.String("error", herr.Error()),
			)
		}
	})
	return result, err
}

func callMore(name string, args []any) map[string]any {
	if args == nil {
		args = []any{}
	}
	return map[string]any{
		MoreFunctionName: name,
		MoreFunctionArgs: args,
	}
}

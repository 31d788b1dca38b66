// recover.go provides panic recovery for goroutines and callbacks that sit
// outside Call.

package deskerr

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// MorePanic marks entries created from a recovered panic.
const MorePanic = "panic"

// Recover captures a panic, handles it as a BaseError and returns the
// recovered value. It does NOT re-panic. It must be deferred directly:
//
//	func worker(ctx context.Context) {
//	    defer deskerr.Recover(ctx, handler)
//	    // code that might panic
//	}
//
// To turn the panic into a return value, call recover yourself and use
// HandlePanic.
func Recover(ctx context.Context, h *Handler) any {
	r := recover()
	if r == nil {
		return nil
	}
	HandlePanic(ctx, h, r)
	return r
}

// HandlePanic converts a recovered value into an *Error carrying the current
// stack, handles it with console logging and the process state, and
// returns it.
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        err = deskerr.HandlePanic(ctx, handler, r)
//	    }
//	}()
func HandlePanic(ctx context.Context, h *Handler, recovered any) *Error {
	perr := &Error{
		Kind:    KindBase,
		Message: formatRecovered(recovered),
		Stack:   string(debug.Stack()),
	}
	if cause, ok := recovered.(error); ok {
		perr.cause = cause
		perr.Message = "panic"
	}

	herr := h.HandleError(ctx, true, perr, map[string]any{
		MorePanic:  true,
		MoreSystem: CaptureSystemState(processStart).Fields(),
	})
	if herr != nil {
		h.logger.Warn("deskerr: panic handling failed",
			slog.String("error", herr.Error()),
		)
	}
	return perr
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("panic: %v", recovered)
}

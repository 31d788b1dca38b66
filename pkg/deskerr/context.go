// context.go provides utilities for propagating the current route and the
// originating document through context.Context.

package deskerr

import "context"

// Context key types (unexported to avoid collisions)
type routeKey struct{}
type docKey struct{}

// WithRoute returns a context carrying the active navigation path. It is the
// fallback for issue reports when the handler has no RouteProvider.
func WithRoute(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, routeKey{}, path)
}

// RouteFromContext extracts the navigation path from ctx.
// Returns empty string and false if not set or empty.
func RouteFromContext(ctx context.Context) (string, bool) {
	path, ok := ctx.Value(routeKey{}).(string)
	return path, ok && path != ""
}

// WithDoc returns a context carrying the document an operation acts on.
// HandleErrorWithDialog uses it when DialogOptions.Doc is nil.
func WithDoc(ctx context.Context, doc any) context.Context {
	return context.WithValue(ctx, docKey{}, docHolder{doc: doc})
}

// docHolder distinguishes "nil doc set" from "not set".
type docHolder struct {
	doc any
}

// DocFromContext extracts the document from ctx.
func DocFromContext(ctx context.Context) (any, bool) {
	h, ok := ctx.Value(docKey{}).(docHolder)
	if !ok {
		return nil, false
	}
	return h.doc, true
}

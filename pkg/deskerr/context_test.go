package deskerr

import (
	"context"
	"testing"
)

func TestRouteFromContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := RouteFromContext(ctx); ok {
		t.Error("empty context should have no route")
	}

	if _, ok := RouteFromContext(WithRoute(ctx, "")); ok {
		t.Error("empty route should report not set")
	}

	path, ok := RouteFromContext(WithRoute(ctx, "/desk"))
	if !ok || path != "/desk" {
		t.Errorf("RouteFromContext = %q, %v", path, ok)
	}
}

func TestDocFromContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := DocFromContext(ctx); ok {
		t.Error("empty context should have no doc")
	}

	doc, ok := DocFromContext(WithDoc(ctx, nil))
	if !ok || doc != nil {
		t.Errorf("nil doc should be reported as set, got %v, %v", doc, ok)
	}

	doc, ok = DocFromContext(WithDoc(ctx, map[string]any{"name": "INV-1"}))
	if !ok || doc.(map[string]any)["name"] != "INV-1" {
		t.Errorf("DocFromContext = %v, %v", doc, ok)
	}
}

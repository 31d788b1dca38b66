package noop

import (
	"context"
	"testing"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

func TestNoopSink(t *testing.T) {
	sink := NewNoopSink()
	ctx := context.Background()

	if err := sink.Write(ctx, deskerr.Report{EventID: "x"}); err != nil {
		t.Errorf("Write returned error: %v", err)
	}
	if err := sink.Flush(ctx); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

func TestNoopSink_WithReporter(t *testing.T) {
	r := deskerr.NewReporter(deskerr.WithSink(NewNoopSink()))
	if err := r.Report(context.Background(), &deskerr.Entry{Name: "BaseError", Stack: "s"}); err != nil {
		t.Errorf("Report returned error: %v", err)
	}
}

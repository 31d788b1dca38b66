package deskerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew_CapturesStack(t *testing.T) {
	err := New(KindValidation, "bad input")

	if err.Stack == "" {
		t.Fatal("Stack should be captured")
	}
	if !strings.Contains(err.Stack, "TestNew_CapturesStack") {
		t.Errorf("Stack should start at the caller, got:\n%s", err.Stack)
	}
	if strings.Contains(err.Stack, "deskerr.callers") || strings.Contains(err.Stack, "deskerr.New(") {
		t.Errorf("Stack should not contain constructor frames, got:\n%s", err.Stack)
	}
}

func TestError_Capabilities(t *testing.T) {
	err := New(KindNotFound, "missing")

	if NameOf(err) != "NotFoundError" {
		t.Errorf("NameOf = %q, want NotFoundError", NameOf(err))
	}
	if StackOf(err) != err.Stack {
		t.Error("StackOf should return the captured stack")
	}
	if !ShouldPersist(err) {
		t.Error("ShouldPersist should default to true")
	}
	if ShouldPersist(err.Expected()) {
		t.Error("Expected() errors should not persist")
	}
	if !ShouldPersist(err) {
		t.Error("Expected() must not modify the receiver")
	}
}

func TestWrap_ChainAndMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindDatabase, cause, "save failed")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Error() != "save failed: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
	if MessageOf(err) != "save failed" {
		t.Errorf("MessageOf = %q, want %q", MessageOf(err), "save failed")
	}
}

func TestCapabilities_ThroughFmtWrap(t *testing.T) {
	inner := Newf(KindForbidden, "user %d", 7)
	outer := fmt.Errorf("open: %w", inner)

	if NameOf(outer) != "ForbiddenError" {
		t.Errorf("NameOf = %q, want ForbiddenError", NameOf(outer))
	}
	if StackOf(outer) != inner.Stack {
		t.Error("StackOf should find the inner stack")
	}
	if MessageOf(outer) != "open: user 7" {
		t.Errorf("MessageOf = %q", MessageOf(outer))
	}
	if ShouldPersist(fmt.Errorf("x: %w", inner.Expected())) {
		t.Error("ShouldPersist should see through wrapping")
	}
}

func TestPlainError_Defaults(t *testing.T) {
	err := errors.New("plain")

	if NameOf(err) != "Error" {
		t.Errorf("NameOf = %q, want Error", NameOf(err))
	}
	if StackOf(err) != "" {
		t.Error("plain errors have no stack")
	}
	if !ShouldPersist(err) {
		t.Error("plain errors persist by default")
	}
	if MessageOf(nil) != "" {
		t.Error("MessageOf(nil) should be empty")
	}
}

func TestCustomError_Capabilities(t *testing.T) {
	err := &unstoredError{customError{name: "MandatoryError", msg: "required", stack: "trace"}}

	if NameOf(err) != "MandatoryError" {
		t.Errorf("NameOf = %q", NameOf(err))
	}
	if StackOf(err) != "trace" {
		t.Errorf("StackOf = %q", StackOf(err))
	}
	if ShouldPersist(err) {
		t.Error("ShouldStore() false should be honored")
	}
}

func TestWrap_InheritsSkipStore(t *testing.T) {
	inner := New(KindForbidden, "not permitted").Expected()

	wrapped := Wrap(KindBase, inner, "action failed")
	if ShouldPersist(wrapped) {
		t.Error("wrapping an expected error should not make it persist")
	}

	custom := Wrap(KindBase, &unstoredError{customError{name: "X", msg: "x"}}, "outer")
	if ShouldPersist(custom) {
		t.Error("wrapper should follow a cause whose ShouldStore is false")
	}

	if !ShouldPersist(Wrap(KindBase, errors.New("plain"), "outer")) {
		t.Error("plain cause should keep the wrapper persistable")
	}
	if !ShouldPersist(Wrap(KindBase, nil, "no cause")) {
		t.Error("nil cause should keep the wrapper persistable")
	}
}

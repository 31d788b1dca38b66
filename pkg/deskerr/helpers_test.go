package deskerr

import (
	"context"
	"sync"
)

// testSink captures reports for verification in tests.
type testSink struct {
	mu       sync.Mutex
	reports  []Report
	writeErr error
}

func (s *testSink) Write(ctx context.Context, report Report) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func (s *testSink) Flush(ctx context.Context) error {
	return nil
}

func (s *testSink) Close() error {
	return nil
}

func (s *testSink) getReports() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Report, len(s.reports))
	copy(result, s.reports)
	return result
}

// fakeUI records toasts and dialogs and answers dialogs with choice.
type fakeUI struct {
	mu        sync.Mutex
	toasts    []Toast
	dialogs   []Dialog
	choice    int
	toastErr  error
	dialogErr error
}

func newFakeUI() *fakeUI {
	return &fakeUI{choice: -1}
}

func (u *fakeUI) ShowToast(ctx context.Context, toast Toast) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.toasts = append(u.toasts, toast)
	return u.toastErr
}

func (u *fakeUI) ShowMessageDialog(ctx context.Context, dialog Dialog) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dialogs = append(u.dialogs, dialog)
	if u.dialogErr != nil {
		return -1, u.dialogErr
	}
	return u.choice, nil
}

func (u *fakeUI) getToasts() []Toast {
	u.mu.Lock()
	defer u.mu.Unlock()
	result := make([]Toast, len(u.toasts))
	copy(result, u.toasts)
	return result
}

func (u *fakeUI) getDialogs() []Dialog {
	u.mu.Lock()
	defer u.mu.Unlock()
	result := make([]Dialog, len(u.dialogs))
	copy(result, u.dialogs)
	return result
}

type invocation struct {
	action  string
	payload any
}

// fakeChannel implements Invoker and Sender.
type fakeChannel struct {
	mu        sync.Mutex
	invoked   []invocation
	sent      []invocation
	invokeErr error
	sendErr   error
}

func (c *fakeChannel) Invoke(ctx context.Context, action string, payload any) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invoked = append(c.invoked, invocation{action: action, payload: payload})
	if c.invokeErr != nil {
		return nil, c.invokeErr
	}
	return []byte(`{"ok":true}`), nil
}

func (c *fakeChannel) Send(ctx context.Context, name string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, invocation{action: name, payload: payload})
	return c.sendErr
}

func (c *fakeChannel) getInvoked() []invocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]invocation, len(c.invoked))
	copy(result, c.invoked)
	return result
}

func (c *fakeChannel) getSent() []invocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]invocation, len(c.sent))
	copy(result, c.sent)
	return result
}

// storeRecorder is an EntryStore that keeps saved entries in memory.
type storeRecorder struct {
	mu      sync.Mutex
	saved   []*Entry
	saveErr error
}

func (s *storeRecorder) Save(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, entry)
	return nil
}

func (s *storeRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// customError carries capabilities without being an *Error.
type customError struct {
	name  string
	msg   string
	stack string
}

func (e *customError) Error() string      { return e.msg }
func (e *customError) Name() string       { return e.name }
func (e *customError) StackTrace() string { return e.stack }

type unstoredError struct {
	customError
}

func (e *unstoredError) ShouldStore() bool { return false }

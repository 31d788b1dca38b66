// ui.go defines the collaborators the handler presents through: the UI, the
// inter-process channels, the message formatter and the route accessor.

package deskerr

import (
	"context"
	"errors"
)

// Inter-process action and message names.
const (
	// ActionSendError delivers a ReportPayload to the collector.
	ActionSendError = "send-error"

	// ActionShowError shows the minimal blocking error surface.
	ActionShowError = "show-error"

	// MessageOpenExternal opens a URL outside the application.
	MessageOpenExternal = "open-external"
)

// ToastType is the visual style of a toast.
type ToastType string

const (
	ToastError   ToastType = "error"
	ToastWarning ToastType = "warning"
	ToastInfo    ToastType = "info"
)

// Toast is a non-blocking notification.
type Toast struct {
	Type    ToastType
	Message string

	// ActionText labels the optional action; Action runs when the user
	// clicks it.
	ActionText string
	Action     func()
}

// Button is a dialog button. Action may be nil.
type Button struct {
	Label     string
	Action    func()
	IsPrimary bool
	IsEscape  bool
}

// Dialog is a blocking modal notification.
type Dialog struct {
	Message string
	Detail  string
	Buttons []Button
}

// UI presents toasts and dialogs.
type UI interface {
	// ShowToast presents a toast and returns once it is shown or dismissed.
	ShowToast(ctx context.Context, toast Toast) error

	// ShowMessageDialog blocks until the dialog is dismissed and returns the
	// index of the chosen button, or -1 when none was chosen. The handler
	// runs the chosen button's Action.
	ShowMessageDialog(ctx context.Context, dialog Dialog) (int, error)
}

// Invoker is the inter-process request/response channel.
type Invoker interface {
	Invoke(ctx context.Context, action string, payload any) ([]byte, error)
}

// Sender is the inter-process fire-and-forget channel.
type Sender interface {
	Send(ctx context.Context, name string, payload any) error
}

// MessageFormatter renders the user-facing message for an error, optionally
// using the document it occurred on.
type MessageFormatter interface {
	ErrorMessage(err error, doc any) string
}

// MessageFormatterFunc adapts a function to MessageFormatter.
type MessageFormatterFunc func(err error, doc any) string

// ErrorMessage calls f.
func (f MessageFormatterFunc) ErrorMessage(err error, doc any) string {
	return f(err, doc)
}

// RouteProvider exposes the active navigation path.
type RouteProvider interface {
	CurrentPath() string
}

// RouteFunc adapts a function to RouteProvider.
type RouteFunc func() string

// CurrentPath calls f.
func (f RouteFunc) CurrentPath() string {
	return f()
}

// ErrorSurface is the payload of ActionShowError.
type ErrorSurface struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ErrNoInvoker is returned when an operation needs the inter-process request
// channel and none is configured.
var ErrNoInvoker = errors.New("deskerr: no invoker configured")

// defaultFormatter uses the error's own message.
var defaultFormatter = MessageFormatterFunc(func(err error, doc any) string {
	return MessageOf(err)
})

// noopUI is used when no UI is configured.
type noopUI struct{}

func (noopUI) ShowToast(ctx context.Context, toast Toast) error {
	return nil
}

func (noopUI) ShowMessageDialog(ctx context.Context, dialog Dialog) (int, error) {
	return -1, nil
}

// handler.go provides the Handler, the application's entry point for routing
// errors through recording, remote reporting and user notification.

package deskerr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MaxDialogDetail is the number of characters of detail kept in a dialog
// that offers an issue report.
const MaxDialogDetail = 128

// Untranslated UI strings.
const (
	textReportError        = "Report Error"
	textReport             = "Report"
	textCancel             = "Cancel"
	textErrorTitle         = "Error"
	textCatastrophicDetail = "Something has gone terribly wrong. Please check the console and try again."
)

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLog sets the log entries are recorded to. Defaults to DefaultLog().
func WithLog(log *Log) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// WithReporter sets the remote reporter.
func WithReporter(r Reporter) HandlerOption {
	return func(h *Handler) {
		h.reporter = r
	}
}

// WithUI sets the toast and dialog presenter.
func WithUI(ui UI) HandlerOption {
	return func(h *Handler) {
		h.ui = ui
	}
}

// WithInvoker sets the inter-process request channel used by ShowErrorDialog.
func WithInvoker(inv Invoker) HandlerOption {
	return func(h *Handler) {
		h.invoker = inv
	}
}

// WithSender sets the inter-process fire-and-forget channel used to open
// issue URLs.
func WithSender(s Sender) HandlerOption {
	return func(h *Handler) {
		h.sender = s
	}
}

// WithTranslator sets the translation function for labels and UI text.
func WithTranslator(t Translator) HandlerOption {
	return func(h *Handler) {
		h.translate = t
	}
}

// WithFormatter sets the display-message formatter used by dialogs.
func WithFormatter(f MessageFormatter) HandlerOption {
	return func(h *Handler) {
		h.formatter = f
	}
}

// WithRoutes sets the current-route accessor used in issue reports.
func WithRoutes(r RouteProvider) HandlerOption {
	return func(h *Handler) {
		h.routes = r
	}
}

// WithHandlerEnvironment sets the environment used in issue reports and for
// the development-mode flag. The default reporter shares it.
func WithHandlerEnvironment(env EnvironmentProvider) HandlerOption {
	return func(h *Handler) {
		h.env = env
	}
}

// WithLogger sets the diagnostic console.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithIssueConfig sets the issue tracker.
func WithIssueConfig(cfg IssueConfig) HandlerOption {
	return func(h *Handler) {
		h.issue = cfg
	}
}

// Handler records, reports and presents errors. It is safe for concurrent
// use.
type Handler struct {
	log       *Log
	reporter  Reporter
	ui        UI
	invoker   Invoker
	sender    Sender
	translate Translator
	formatter MessageFormatter
	routes    RouteProvider
	env       EnvironmentProvider
	logger    *slog.Logger
	issue     IssueConfig

	wg sync.WaitGroup
}

// NewHandler creates a Handler. Without a reporter, reports are discarded;
// wire one with WithReporter(NewReporter(WithSink(...))).
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}

	if h.log == nil {
		h.log = DefaultLog()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.env == nil {
		h.env = StaticEnvironment{Platform: DefaultPlatform()}
	}
	if h.reporter == nil {
		h.reporter = NewReporter(WithEnvironment(h.env), WithReporterLogger(h.logger))
	}
	if h.ui == nil {
		h.ui = noopUI{}
	}
	if h.formatter == nil {
		h.formatter = defaultFormatter
	}
	if h.issue.BaseURL == "" && h.issue.Label == "" {
		h.issue = DefaultIssueConfig()
	}

	return h
}

// Log returns the log the handler records to.
func (h *Handler) Log() *Log {
	return h.log
}

// RecordError builds an entry from err and more and appends it to the log.
// more is copied; an unwrapped cause is added under MoreCause.
func (h *Handler) RecordError(ctx context.Context, err error, more map[string]any) *Entry {
	ctxMore := make(map[string]any, len(more)+1)
	for k, v := range more {
		ctxMore[k] = v
	}
	if cause := errors.Unwrap(err); cause != nil {
		ctxMore[MoreCause] = map[string]any{
			"name":    NameOf(cause),
			"message": cause.Error(),
		}
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Name:      NameOf(err),
		Message:   MessageOf(err),
		Stack:     StackOf(err),
		More:      ctxMore,
	}
	entry.Fingerprint = Fingerprint(entry)

	h.log.Append(ctx, entry)
	return entry
}

// HandleError logs err to the console when asked, then records, reports and
// toasts it unless the error opts out of persistence.
//
// The returned error describes failures of the pipeline itself; the original
// error is never returned.
func (h *Handler) HandleError(ctx context.Context, logToConsole bool, err error, more map[string]any) error {
	if err == nil {
		return nil
	}

	ctx, span := tracer().Start(ctx, "deskerr.handle_error")
	defer span.End()
	span.SetAttributes(attribute.String("deskerr.error_name", NameOf(err)))

	if logToConsole {
		h.logger.Error("deskerr: handled error",
			slog.String("name", NameOf(err)),
			slog.String("error", err.Error()),
		)
	}

	if !ShouldPersist(err) {
		span.SetAttributes(attribute.Bool("deskerr.skipped", true))
		return nil
	}

	entry := h.RecordError(ctx, err, more)

	var errs []error
	if rerr := h.reporter.Report(ctx, entry); rerr != nil {
		h.logger.Warn("deskerr: report failed",
			slog.String("entry_id", entry.ID),
			slog.String("error", rerr.Error()),
		)
		errs = append(errs, fmt.Errorf("report entry %s: %w", entry.ID, rerr))
	}

	actionCtx := context.WithoutCancel(ctx)
	toast := Toast{
		Type:       ToastError,
		Message:    LabelFor(h.translate, entry.Name),
		ActionText: h.translate.Translate(textReportError),
		Action: func() {
			h.ReportIssue(actionCtx, entry)
		},
	}
	if terr := h.ui.ShowToast(ctx, toast); terr != nil {
		errs = append(errs, fmt.Errorf("show toast: %w", terr))
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failure")
		return err
	}
	return nil
}

// DialogOptions controls HandleErrorWithDialog.
type DialogOptions struct {
	// Doc is the document the error relates to. When nil the document from
	// the context (WithDoc) is used.
	Doc any

	// ReportError truncates the detail and offers Report and Cancel buttons.
	ReportError bool

	// DontThrow swallows the error instead of returning it.
	DontThrow bool
}

// HandleErrorWithDialog records the error without console logging and shows
// a blocking dialog labelled with its kind. It returns err unless
// opts.DontThrow is set. Pipeline failures are logged, not returned.
func (h *Handler) HandleErrorWithDialog(ctx context.Context, err error, opts DialogOptions) error {
	if err == nil {
		return nil
	}

	ctx, span := tracer().Start(ctx, "deskerr.handle_error_with_dialog")
	defer span.End()

	doc := opts.Doc
	if doc == nil {
		doc, _ = DocFromContext(ctx)
	}

	errorMessage := h.formatter.ErrorMessage(err, doc)
	more := map[string]any{MoreErrorMessage: errorMessage}
	if doc != nil {
		more[MoreDoc] = doc
	}
	if herr := h.HandleError(ctx, false, err, more); herr != nil {
		h.logger.Warn("deskerr: error pipeline failed", slog.String("error", herr.Error()))
	}

	dialog := Dialog{
		Message: LabelFor(h.translate, NameOf(err)),
		Detail:  errorMessage,
	}

	if opts.ReportError {
		dialog.Detail = truncateDetail(errorMessage, MaxDialogDetail)
		actionCtx := context.WithoutCancel(ctx)
		dialog.Buttons = []Button{
			{
				Label:     h.translate.Translate(textReport),
				IsPrimary: true,
				Action: func() {
					entry := h.RecordError(actionCtx, err, map[string]any{MoreErrorMessage: errorMessage})
					h.ReportIssue(actionCtx, entry)
				},
			},
			{
				Label:    h.translate.Translate(textCancel),
				IsEscape: true,
			},
		}
	}

	choice, derr := h.ui.ShowMessageDialog(ctx, dialog)
	if derr != nil {
		span.RecordError(derr)
		h.logger.Warn("deskerr: show dialog failed", slog.String("error", derr.Error()))
	} else if choice >= 0 && choice < len(dialog.Buttons) && dialog.Buttons[choice].Action != nil {
		dialog.Buttons[choice].Action()
	}

	if opts.DontThrow {
		if h.env.Environment(ctx).DevMode {
			h.logger.Info("deskerr: suppressed error",
				slog.String("name", NameOf(err)),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return err
}

// ShowErrorDialog shows the minimal blocking error surface, bypassing the
// log and the reporter. Empty title and content use generic defaults.
func (h *Handler) ShowErrorDialog(ctx context.Context, title, content string) error {
	if title == "" {
		title = h.translate.Translate(textErrorTitle)
	}
	if content == "" {
		content = h.translate.Translate(textCatastrophicDetail)
	}
	if h.invoker == nil {
		return ErrNoInvoker
	}

	_, err := h.invoker.Invoke(ctx, ActionShowError, ErrorSurface{Title: title, Content: content})
	if err != nil {
		return fmt.Errorf("invoke %s: %w", ActionShowError, err)
	}
	return nil
}

// IssueURL composes the issue URL for entry (which may be nil) using the
// handler's environment and current route.
func (h *Handler) IssueURL(ctx context.Context, entry *Entry) string {
	env := h.env.Environment(ctx)
	info := IssueInfo{
		Version:     env.Version,
		Platform:    env.Platform,
		Path:        h.currentPath(ctx),
		Language:    env.Language,
		CountryCode: env.CountryCode,
	}
	return ComposeIssueURL(h.issue, entry, info)
}

// ReportIssue asks the host to open a pre-filled issue for entry. Delivery
// is fire-and-forget; failures are only logged. It returns the URL.
func (h *Handler) ReportIssue(ctx context.Context, entry *Entry) string {
	url := h.IssueURL(ctx, entry)
	if h.sender == nil {
		h.logger.Warn("deskerr: no sender configured, issue url not opened", slog.String("url", url))
		return url
	}
	if err := h.sender.Send(ctx, MessageOpenExternal, url); err != nil {
		h.logger.Warn("deskerr: open issue url failed", slog.String("error", err.Error()))
	}
	return url
}

// Wait blocks until handling started by CallDetached has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Flush flushes the reporter.
func (h *Handler) Flush(ctx context.Context) error {
	return h.reporter.Flush(ctx)
}

// Close closes the reporter.
func (h *Handler) Close() error {
	return h.reporter.Close()
}

// goDetached runs fn on a goroutine tracked by Wait.
func (h *Handler) goDetached(fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

func (h *Handler) currentPath(ctx context.Context) string {
	if h.routes != nil {
		return h.routes.CurrentPath()
	}
	path, _ := RouteFromContext(ctx)
	return path
}

// truncateDetail keeps the first max runes of s, marking the cut with "...".
func truncateDetail(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

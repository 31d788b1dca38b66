// Package deskerr provides error recording, remote reporting and user
// notification for desktop applications.
//
// Errors raised anywhere in the application are funneled through a Handler,
// which appends them to a bounded process-wide log, reports the ones that
// carry a stack trace to a remote collector and tells the user through a
// toast or a blocking dialog with an optional pre-filled issue report.
//
// # Core Components
//
//   - Error: the tagged error variant (Kind, message, stack, persistability)
//   - Log: bounded ring buffer of Entry values, optionally mirrored to disk
//   - Reporter: turns an Entry into a ReportPayload and writes it to a Sink
//   - Sink: destination for reports (ipc, stderr, async, multi, noop, cxdb)
//   - Handler: HandleError, HandleErrorWithDialog, ShowErrorDialog, ReportIssue
//   - Call, CallDetached, Recover: wrappers that route failures to a Handler
//
// # Quick Start
//
//	reporter := deskerr.NewReporter(
//	    deskerr.WithSink(ipc.NewSink(client)),
//	    deskerr.WithEnvironment(env),
//	)
//	h := deskerr.NewHandler(
//	    deskerr.WithReporter(reporter),
//	    deskerr.WithUI(ui),
//	    deskerr.WithSender(client),
//	)
//
//	if err := save(doc); err != nil {
//	    return h.HandleErrorWithDialog(ctx, err, deskerr.DialogOptions{Doc: doc})
//	}
//
// Only errors with a stack trace are reported remotely. Errors created with
// New, Newf or Wrap capture one; plain errors are recorded and toasted but
// stay local.
package deskerr

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/strongdm/deskerr/internal/config"
	"github.com/strongdm/deskerr/internal/observability"
	"github.com/strongdm/deskerr/pkg/deskerr"
	"github.com/strongdm/deskerr/pkg/deskerr/ipc/natsipc"
	"github.com/strongdm/deskerr/pkg/deskerr/sinks/async"
	"github.com/strongdm/deskerr/pkg/deskerr/sinks/ipc"
	"github.com/strongdm/deskerr/pkg/deskerr/sinks/multi"
	"github.com/strongdm/deskerr/pkg/deskerr/sinks/stderr"
	"github.com/strongdm/deskerr/pkg/deskerr/store/sqlite"
)

type emitOptions struct {
	kind        string
	message     string
	route       string
	dialog      bool
	reportError bool
	choice      int
	clickToast  bool
	offline     bool
	persist     bool
	scrub       bool
	verbose     bool
	panic       bool
}

func newEmitCmd(flags *globalFlags) *cobra.Command {
	opts := emitOptions{}

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Send a sample error through the client pipeline",
		Long: `Raise an error of the given kind and route it through a handler wired
like a desktop client: the error log (mirrored to SQLite), the NATS
reporter and a console UI that prints toasts and dialogs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runEmit(cmd.Context(), cfg, flags.tracing(cfg), logger, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "ValidationError", "error kind name, e.g. NotFoundError")
	cmd.Flags().StringVar(&opts.message, "message", "Sample error raised by deskerr emit", "error message")
	cmd.Flags().StringVar(&opts.route, "route", "/desk", "current route reported in issue URLs")
	cmd.Flags().BoolVar(&opts.dialog, "dialog", false, "present the error in a blocking dialog")
	cmd.Flags().BoolVar(&opts.reportError, "report-error", false, "offer Report and Cancel buttons in the dialog")
	cmd.Flags().IntVar(&opts.choice, "choose", -1, "dialog button index to press (-1 dismisses)")
	cmd.Flags().BoolVar(&opts.clickToast, "click-toast", false, "press the toast action")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "do not connect to NATS; report to stderr only")
	cmd.Flags().BoolVar(&opts.persist, "persist", true, "mirror the error log to the SQLite store")
	cmd.Flags().BoolVar(&opts.scrub, "scrub", false, "redact secrets and PII before reporting")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print reports to stderr with context and stack")
	cmd.Flags().BoolVar(&opts.panic, "panic", false, "raise the error as a panic and recover it")

	return cmd
}

func runEmit(ctx context.Context, cfg *config.Config, tcfg observability.TracingConfig, logger *slog.Logger, out io.Writer, opts emitOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tp, err := observability.NewTracerProvider(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("failed to create tracer provider: %w", err)
	}
	defer tp.Shutdown(context.WithoutCancel(ctx))

	logOpts := []deskerr.LogOption{deskerr.WithLogLogger(logger)}
	if opts.persist {
		store, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() {
			if n, err := store.Prune(context.WithoutCancel(ctx), cfg.Store.Keep); err != nil {
				logger.Warn("prune failed", slog.Any("error", err))
			} else if n > 0 {
				logger.Debug("pruned stored entries", slog.Int64("count", n))
			}
			store.Close()
		}()
		logOpts = append(logOpts, deskerr.WithEntryStore(store))
	}

	sinks := []deskerr.Sink{}
	if opts.verbose || opts.offline {
		var sinkOpts []stderr.StderrSinkOption
		if opts.verbose {
			sinkOpts = append(sinkOpts, stderr.WithVerbose())
		}
		sinks = append(sinks, stderr.NewStderrSink(sinkOpts...))
	}

	var sender deskerr.Sender = consoleSender{out: out}
	var invoker deskerr.Invoker
	if !opts.offline {
		client, err := natsipc.Connect(ctx, natsConfig(cfg, "client"), logger)
		if err != nil {
			return err
		}
		defer client.Close()
		invoker = client
		sinks = append(sinks, async.NewAsyncSink(
			ipc.NewSink(client, ipc.WithTimeout(cfg.NATS.Timeout)),
			async.WithLogger(logger),
		))
	}

	reporterOpts := []deskerr.ReporterOption{
		deskerr.WithSink(multi.NewMultiSink(sinks...)),
		deskerr.WithEnvironment(deskerr.StaticEnvironment(cfg.Environment())),
		deskerr.WithReporterLogger(logger),
	}
	if opts.scrub {
		reporterOpts = append(reporterOpts, deskerr.WithDefaultScrubbing())
	}

	h := deskerr.NewHandler(
		deskerr.WithLog(deskerr.NewLog(deskerr.DefaultLogCapacity, logOpts...)),
		deskerr.WithReporter(deskerr.NewReporter(reporterOpts...)),
		deskerr.WithUI(newConsoleUI(out, opts.choice, opts.clickToast)),
		deskerr.WithInvoker(invoker),
		deskerr.WithSender(sender),
		deskerr.WithHandlerEnvironment(deskerr.StaticEnvironment(cfg.Environment())),
		deskerr.WithIssueConfig(cfg.IssueTracker()),
		deskerr.WithLogger(logger),
	)
	defer func() {
		if err := h.Close(); err != nil {
			logger.Warn("handler close failed", slog.Any("error", err))
		}
	}()

	ctx = deskerr.WithRoute(ctx, opts.route)
	sample := deskerr.New(deskerr.ParseKind(opts.kind), opts.message)

	switch {
	case opts.panic:
		func() {
			defer deskerr.Recover(ctx, h)
			panic(sample)
		}()
	case opts.dialog:
		err := h.HandleErrorWithDialog(ctx, sample, deskerr.DialogOptions{
			ReportError: opts.reportError,
			DontThrow:   true,
		})
		if err != nil {
			return err
		}
	default:
		_, err := deskerr.Call(ctx, h, "emit", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, sample
		}, opts.kind, opts.message)
		if !errors.Is(err, sample) {
			return fmt.Errorf("unexpected result from handled call: %v", err)
		}
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.NATS.Timeout+time.Second)
	defer cancel()
	if err := h.Flush(flushCtx); err != nil {
		return fmt.Errorf("flush reports: %w", err)
	}

	if last := h.Log().Last(); last != nil {
		fmt.Fprintf(out, "recorded %s %s (fingerprint %s)\n", last.Name, last.ID, last.Fingerprint)
	}
	return nil
}

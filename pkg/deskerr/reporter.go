// reporter.go provides the Reporter, which turns recorded entries into
// payloads and hands them to a Sink.

package deskerr

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Reporter delivers entries to a remote collector.
type Reporter interface {
	// Report sends the entry. Entries without a stack are skipped and
	// Report returns nil. Sink failures are returned unchanged.
	Report(ctx context.Context, entry *Entry) error

	// Flush ensures buffered reports are delivered.
	Flush(ctx context.Context) error

	// Close releases the sink.
	Close() error
}

// ReporterOption configures a Reporter.
type ReporterOption func(*reporterConfig)

type reporterConfig struct {
	sink     Sink
	scrubber *Scrubber
	env      EnvironmentProvider
	logger   *slog.Logger
}

// WithSink sets the sink for the reporter.
func WithSink(sink Sink) ReporterOption {
	return func(c *reporterConfig) {
		c.sink = sink
	}
}

// WithScrubber configures the reporter with a custom scrubber configuration.
func WithScrubber(cfg ScrubberConfig) ReporterOption {
	return func(c *reporterConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() ReporterOption {
	return func(c *reporterConfig) {
		c.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// WithEnvironment sets the source of the environment snapshot.
func WithEnvironment(env EnvironmentProvider) ReporterOption {
	return func(c *reporterConfig) {
		c.env = env
	}
}

// WithReporterLogger sets the diagnostic logger. In development mode every
// payload is written to it before delivery.
func WithReporterLogger(logger *slog.Logger) ReporterOption {
	return func(c *reporterConfig) {
		c.logger = logger
	}
}

// defaultReporter is the standard Reporter implementation.
type defaultReporter struct {
	sink     Sink
	scrubber *Scrubber
	env      EnvironmentProvider
	logger   *slog.Logger
}

// NewReporter creates a Reporter with the given options.
func NewReporter(opts ...ReporterOption) Reporter {
	cfg := &reporterConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.sink == nil {
		cfg.sink = &noopSinkInternal{}
	}
	if cfg.env == nil {
		cfg.env = StaticEnvironment{Platform: DefaultPlatform()}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &defaultReporter{
		sink:     cfg.sink,
		scrubber: cfg.scrubber,
		env:      cfg.env,
		logger:   cfg.logger,
	}
}

// Report builds a payload from the entry and writes it to the sink.
func (r *defaultReporter) Report(ctx context.Context, entry *Entry) error {
	if !entry.Reportable() {
		return nil
	}

	ctx, span := tracer().Start(ctx, "deskerr.report")
	defer span.End()

	if r.scrubber != nil {
		entry = r.scrubber.ScrubEntry(entry)
	}

	env := r.env.Environment(ctx)
	report := Report{
		EventID:     entry.ID,
		Timestamp:   entry.Timestamp,
		Fingerprint: entry.Fingerprint,
		Payload:     NewReportPayload(entry, env),
	}
	if report.EventID == "" {
		report.EventID = uuid.NewString()
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}
	if report.Fingerprint == "" {
		report.Fingerprint = Fingerprint(entry)
	}

	span.SetAttributes(
		attribute.String("deskerr.error_name", report.Payload.ErrorName),
		attribute.String("deskerr.event_id", report.EventID),
	)

	if env.DevMode {
		r.logger.Info("deskerr: report payload",
			slog.String("event_id", report.EventID),
			slog.Any("payload", report.Payload),
		)
	}

	if err := r.sink.Write(ctx, report); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Flush delegates to the sink.
func (r *defaultReporter) Flush(ctx context.Context) error {
	return r.sink.Flush(ctx)
}

// Close delegates to the sink.
func (r *defaultReporter) Close() error {
	return r.sink.Close()
}

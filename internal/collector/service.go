// Package collector is the receiving end of the send-error action: it
// subscribes to report deliveries over NATS, stores them in BadgerDB and
// serves them over HTTP.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/strongdm/deskerr/internal/observability"
	"github.com/strongdm/deskerr/pkg/deskerr"
	"github.com/strongdm/deskerr/pkg/deskerr/ipc/natsipc"
)

// DefaultQueueGroup lets several collectors share the subject.
const DefaultQueueGroup = "deskerr-collectors"

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics. Defaults to a fresh NewMetrics().
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPrefix sets the subject prefix (default "deskerr").
func WithPrefix(prefix string) Option {
	return func(s *Service) {
		s.prefix = prefix
	}
}

// WithQueueGroup sets the NATS queue group.
func WithQueueGroup(group string) Option {
	return func(s *Service) {
		s.queueGroup = group
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service stores reports delivered on "<prefix>.send-error".
type Service struct {
	store      *Store
	metrics    *Metrics
	logger     *slog.Logger
	prefix     string
	queueGroup string
	now        func() time.Time

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewService creates a collector service over store.
func NewService(store *Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		prefix:     natsipc.DefaultConfig().Prefix,
		queueGroup: DefaultQueueGroup,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Subject returns the subject the service listens on.
func (s *Service) Subject() string {
	return natsipc.SubjectFor(s.prefix, deskerr.ActionSendError)
}

// Store returns the report store.
func (s *Service) Store() *Store {
	return s.store
}

// Metrics returns the service metrics.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Subscribe starts consuming deliveries on conn.
func (s *Service) Subscribe(ctx context.Context, conn *nats.Conn) error {
	if conn == nil {
		return natsipc.ErrNotConnected
	}

	sub, err := conn.QueueSubscribe(s.Subject(), s.queueGroup, func(msg *nats.Msg) {
		reply := s.Handle(ctx, msg.Data)
		if err := natsipc.Respond(msg, reply); err != nil {
			s.logger.Error("failed to send reply",
				slog.Any("error", err),
				slog.String("report_id", reply.ID),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	s.logger.Info("subscribed to NATS",
		slog.String("subject", s.Subject()),
		slog.String("queue", s.queueGroup),
	)
	return nil
}

// Unsubscribe drains the subscription, letting in-flight deliveries finish.
func (s *Service) Unsubscribe() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Drain()
}

// Handle decodes and stores one delivery and returns the reply envelope.
func (s *Service) Handle(ctx context.Context, data []byte) natsipc.Reply {
	ctx, span := observability.StartSpan(ctx, "collector.handle_report")
	defer span.End()

	var payload deskerr.ReportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.metrics.RecordRejected(RejectDecode)
		s.logger.Warn("failed to decode report",
			slog.Any("error", err),
			slog.Int("size", len(data)),
		)
		span.SetStatus(codes.Error, "decode")
		return natsipc.Reply{Error: "invalid report payload: " + err.Error()}
	}

	kind := deskerr.ParseKind(payload.ErrorName).String()
	s.metrics.RecordReceived(kind)
	span.SetAttributes(attribute.String("deskerr.kind", kind))

	if err := validatePayload(payload); err != nil {
		s.metrics.RecordRejected(RejectInvalid)
		span.SetStatus(codes.Error, "invalid")
		return natsipc.Reply{Error: err.Error()}
	}

	report := &StoredReport{
		ID:         uuid.NewString(),
		ReceivedAt: s.now().UTC(),
		Payload:    payload,
	}
	report.Fingerprint = deskerr.Fingerprint(report.Entry())

	if err := s.store.Put(ctx, report); err != nil {
		s.metrics.RecordRejected(RejectStore)
		s.logger.Error("failed to store report",
			slog.Any("error", err),
			slog.String("report_id", report.ID),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "store")
		return natsipc.Reply{Error: "failed to store report"}
	}

	s.metrics.RecordStored(kind)
	s.logger.Debug("stored report",
		slog.String("report_id", report.ID),
		slog.String("error_name", payload.ErrorName),
		slog.String("fingerprint", report.Fingerprint),
	)
	span.SetAttributes(attribute.String("deskerr.report_id", report.ID))
	return natsipc.Reply{OK: true, ID: report.ID}
}

// RunCleanup deletes reports older than retention every interval until ctx
// is done.
func (s *Service) RunCleanup(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.Cleanup(ctx, retention)
			if err != nil {
				s.logger.Warn("report cleanup failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				s.logger.Info("removed expired reports", slog.Int("count", n))
			}
		}
	}
}

var errMissingName = errors.New("error_name is required")

func validatePayload(p deskerr.ReportPayload) error {
	if p.ErrorName == "" {
		return errMissingName
	}
	return nil
}

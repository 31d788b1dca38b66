package collector

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

func TestService_Subject(t *testing.T) {
	s, _ := newTestService(t)
	assert.Equal(t, "deskerr.send-error", s.Subject())

	s, _ = newTestService(t, WithPrefix("acme"))
	assert.Equal(t, "acme.send-error", s.Subject())
}

func TestService_HandleStoresReport(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	payload := samplePayload("ValidationError", "Value missing")
	id := deliver(t, s, payload)
	require.NotEmpty(t, id)

	got, err := s.Store().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, deskerr.Fingerprint(got.Entry()), got.Fingerprint)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().received.WithLabelValues("ValidationError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().stored.WithLabelValues("ValidationError")))
}

func TestService_HandleUnknownKind(t *testing.T) {
	s, _ := newTestService(t)

	deliver(t, s, samplePayload("TypeError", "x is undefined"))

	kind := deskerr.KindUnknown.String()
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().stored.WithLabelValues(kind)))
}

func TestService_HandleRejectsGarbage(t *testing.T) {
	s, logs := newTestService(t)

	reply := s.Handle(context.Background(), []byte("{not json"))
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "invalid report payload")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().rejected.WithLabelValues(RejectDecode)))
	assert.Contains(t, logs.String(), "failed to decode report")

	count, err := s.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_HandleRejectsMissingName(t *testing.T) {
	s, _ := newTestService(t)

	reply := s.Handle(context.Background(), mustJSON(t, samplePayload("", "no name")))
	assert.False(t, reply.OK)
	assert.Equal(t, "error_name is required", reply.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().rejected.WithLabelValues(RejectInvalid)))
}

func TestService_HandleStoreFailure(t *testing.T) {
	s, logs := newTestService(t)
	require.NoError(t, s.Store().Close())

	reply := s.Handle(context.Background(), mustJSON(t, samplePayload("BaseError", "boom")))
	assert.False(t, reply.OK)
	assert.Equal(t, "failed to store report", reply.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().rejected.WithLabelValues(RejectStore)))
	assert.Contains(t, logs.String(), "failed to store report")
}

func TestService_SubscribeWithoutConn(t *testing.T) {
	s, _ := newTestService(t)
	assert.Error(t, s.Subscribe(context.Background(), nil))
	assert.NoError(t, s.Unsubscribe())
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordReceived("BaseError")
	m.RecordRejected(RejectDecode)

	expected := `
# HELP deskerr_reports_rejected_total Total number of error reports rejected
# TYPE deskerr_reports_rejected_total counter
deskerr_reports_rejected_total{reason="decode"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "deskerr_reports_rejected_total"))
}

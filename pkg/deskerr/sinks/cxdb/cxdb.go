// Package cxdb provides a sink that persists reports to cxdb as SystemMessage
// items, keeping one context per installation so each install's error
// history reads as a single timeline.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSinkConfig)

type cxdbSinkConfig struct {
	labels    []string
	clientTag string
}

// WithLabels sets the labels attached to new installation contexts.
func WithLabels(labels []string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.labels = labels
	}
}

// WithClientTag sets the client tag for new contexts.
func WithClientTag(tag string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.clientTag = tag
	}
}

// unknownInstance keys reports without an instance id.
const unknownInstance = "unknown"

type contextHead struct {
	contextID uint64
	turnID    uint64
}

type cxdbSink struct {
	client    CXDBClient
	labels    []string
	clientTag string

	mu    sync.Mutex
	heads map[string]*contextHead
}

// NewCXDBSink creates a sink that writes to cxdb.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) deskerr.Sink {
	cfg := &cxdbSinkConfig{
		labels:    []string{"error", "desktop"},
		clientTag: "deskerr",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbSink{
		client:    client,
		labels:    cfg.labels,
		clientTag: cfg.clientTag,
		heads:     make(map[string]*contextHead),
	}
}

// Write appends the report to its installation's context, creating the
// context on first use. Writes for one sink are serialized so turns chain.
func (s *cxdbSink) Write(ctx context.Context, report deskerr.Report) error {
	instance := report.Payload.InstanceID
	if instance == "" {
		instance = unknownInstance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	head, ok := s.heads[instance]
	isNew := !ok
	if isNew {
		created, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create context for instance %s: %w", instance, err)
		}
		head = &contextHead{contextID: created.ContextID, turnID: created.HeadTurnID}
	}

	item := s.buildConversationItem(report, instance, isNew)

	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      head.contextID,
		ParentTurnID:   head.turnID,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: report.EventID,
	}

	result, err := s.client.AppendTurn(ctx, req)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	head.turnID = result.TurnID
	s.heads[instance] = head
	return nil
}

func (s *cxdbSink) buildConversationItem(report deskerr.Report, instance string, isNew bool) *cxdtypes.ConversationItem {
	p := report.Payload

	// "ErrorName: truncated message", at most 100 bytes.
	title := p.ErrorName
	if p.Message != "" {
		const maxMsgLen = 80
		msg := p.Message
		if len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen] + "..."
		}
		title = p.ErrorName + ": " + msg
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: report.Timestamp.UnixMilli(),
		ID:        report.EventID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title,
			Content: buildReportDetails(report),
		},
	}

	// cxdb expects context metadata on the first turn.
	if isNew {
		labels := append([]string{}, s.labels...)
		labels = append(labels, "instance:"+instance)
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    labels,
			ClientTag: s.clientTag,
		}
	}

	return item
}

// buildReportDetails encodes the report as JSON for SystemMessage.Content.
// It embeds the ReportPayload contract unchanged plus the report identity.
func buildReportDetails(report deskerr.Report) string {
	details := struct {
		EventID     string `json:"event_id"`
		Fingerprint string `json:"fingerprint"`
		deskerr.ReportPayload
	}{
		EventID:       report.EventID,
		Fingerprint:   report.Fingerprint,
		ReportPayload: report.Payload,
	}

	jsonBytes, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(jsonBytes)
}

func (s *cxdbSink) Flush(ctx context.Context) error {
	return nil
}

func (s *cxdbSink) Close() error {
	return nil
}

// Package natsipc implements the inter-process channels over NATS: Invoke is
// a request/reply on "<prefix>.<action>" and Send is a publish on
// "<prefix>.<name>". Replies carry the Reply envelope.
package natsipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Config holds NATS connection configuration.
type Config struct {
	// NATS server URL.
	URL string

	// Prefix is prepended to every action and message name.
	Prefix string

	// Connection name for identification.
	Name string

	// Reconnect settings.
	MaxReconnects int
	ReconnectWait time.Duration

	// Timeout applies to Invoke when ctx has no deadline.
	Timeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Prefix:        "deskerr",
		Name:          "deskerr",
		MaxReconnects: -1, // Unlimited.
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Reply is the envelope every responder sends back.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	// ID optionally identifies what the responder created, e.g. a stored
	// report.
	ID string `json:"id,omitempty"`
}

// RemoteError is returned by Invoke when the responder answered ok=false.
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error: %s", e.Action, e.Message)
}

// ErrNotConnected is returned when the client has no connection.
var ErrNotConnected = errors.New("natsipc: not connected")

// Client implements deskerr.Invoker and deskerr.Sender.
type Client struct {
	conn   *nats.Conn
	config Config
	logger *slog.Logger
}

// Connect dials NATS and returns a ready client.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS",
		slog.String("url", conn.ConnectedUrl()),
		slog.String("server_id", conn.ConnectedServerId()),
	)
	return NewClient(conn, cfg, logger), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *nats.Conn, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{conn: conn, config: cfg, logger: logger}
}

// Conn returns the underlying connection, e.g. to subscribe responders on
// the same connection.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Subject returns the subject used for an action or message name.
func (c *Client) Subject(name string) string {
	return SubjectFor(c.config.Prefix, name)
}

// SubjectFor joins prefix and name.
func SubjectFor(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Invoke sends payload as JSON and waits for the reply. A reply with
// ok=false is returned as *RemoteError along with the raw reply.
func (c *Client) Invoke(ctx context.Context, action string, payload any) ([]byte, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action, err)
	}

	if _, ok := ctx.Deadline(); !ok && c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	msg, err := c.conn.RequestWithContext(ctx, c.Subject(action), data)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", action, err)
	}

	if err := CheckReply(action, msg.Data); err != nil {
		return msg.Data, err
	}
	return msg.Data, nil
}

// Send publishes payload as JSON without waiting for a reply.
func (c *Client) Send(ctx context.Context, name string, payload any) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", name, err)
	}
	if err := c.conn.Publish(c.Subject(name), data); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

// Close drains and closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("failed to drain NATS connection", slog.Any("error", err))
		c.conn.Close()
	}
	return nil
}

// IsConnected returns true if connected to NATS.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// CheckReply decodes a reply envelope and converts ok=false into a
// *RemoteError.
func CheckReply(action string, data []byte) error {
	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("decode %s reply: %w", action, err)
	}
	if !reply.OK {
		msg := reply.Error
		if msg == "" {
			msg = "request rejected"
		}
		return &RemoteError{Action: action, Message: msg}
	}
	return nil
}

// Respond answers a request message with the envelope. Messages without a
// reply subject are ignored.
func Respond(msg *nats.Msg, reply Reply) error {
	if msg.Reply == "" {
		return nil
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return msg.Respond(data)
}

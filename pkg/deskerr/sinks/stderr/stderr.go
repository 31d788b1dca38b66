// Package stderr provides a sink that prints reports in human-readable form.
// Useful in development builds in place of the remote collector.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose prints stack traces and context.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithWriter redirects output (default: os.Stderr).
func WithWriter(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.out = w
	}
}

type stderrSink struct {
	mu      sync.Mutex
	verbose bool
	out     io.Writer
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) deskerr.Sink {
	cfg := &stderrSinkConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// Write formats the report as:
//
//	[DESKERR] <timestamp> <error_name> v<version> (<platform>)
//	        Message: ...
func (s *stderrSink) Write(ctx context.Context, report deskerr.Report) error {
	p := report.Payload
	var b strings.Builder

	timestamp := report.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	header := fmt.Sprintf("[DESKERR] %s %s", timestamp, p.ErrorName)
	if p.Version != "" {
		header += " v" + p.Version
	}
	if p.Platform != "" {
		header += " (" + p.Platform + ")"
	}
	b.WriteString(header + "\n")

	if p.Message != "" {
		fmt.Fprintf(&b, "        Message: %s\n", p.Message)
	}
	if report.Fingerprint != "" {
		fmt.Fprintf(&b, "        Fingerprint: %s\n", report.Fingerprint)
	}
	if p.InstanceID != "" {
		fmt.Fprintf(&b, "        Instance: %s (open %d)\n", p.InstanceID, p.OpenCount)
	}

	if s.verbose {
		if p.More != "" && p.More != "{}" {
			fmt.Fprintf(&b, "        More: %s\n", p.More)
		}
		if p.Stack != "" {
			b.WriteString("        Stack trace:\n")
			for _, line := range strings.Split(p.Stack, "\n") {
				fmt.Fprintf(&b, "          %s\n", line)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, b.String())
	return err
}

func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

func (s *stderrSink) Close() error {
	return nil
}

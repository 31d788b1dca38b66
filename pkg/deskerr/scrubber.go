// scrubber.go implements fail-closed redaction of entries before they leave
// the process.

package deskerr

import (
	"fmt"
	"regexp"
	"strings"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitiveKeys contains additional substrings that mark a More key as
	// sensitive.
	SensitiveKeys []string

	// MaxMessageSize is the maximum length for messages (default: 4096).
	MaxMessageSize int

	// MaxStackTraceSize is the maximum length for stack traces (default: 32768).
	MaxStackTraceSize int

	// MaxValueSize is the maximum length for a single More string value
	// (default: 1024).
	MaxValueSize int

	// MaxDepth bounds recursion into nested More values (default: 8).
	MaxDepth int

	// ScrubMessages enables pattern redaction in messages and string values
	// (default: true).
	ScrubMessages bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize:    4096,
		MaxStackTraceSize: 32768,
		MaxValueSize:      1024,
		MaxDepth:          8,
		ScrubMessages:     true,
	}
}

var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
}

var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
}

var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
}

// Scrubber redacts sensitive data from entries.
type Scrubber struct {
	cfg ScrubberConfig
}

// NewScrubber creates a scrubber. Zero limits fall back to the defaults.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	def := DefaultScrubberConfig()
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.MaxStackTraceSize <= 0 {
		cfg.MaxStackTraceSize = def.MaxStackTraceSize
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = def.MaxValueSize
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	return &Scrubber{cfg: cfg}
}

// ScrubMessage truncates msg and redacts secrets and PII.
func (s *Scrubber) ScrubMessage(msg string) string {
	if len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}
	if !s.cfg.ScrubMessages {
		return msg
	}
	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

// ScrubStackTrace strips user directories from paths and limits size.
func (s *Scrubber) ScrubStackTrace(trace string) string {
	if trace == "" {
		return trace
	}
	result := trace
	for _, pattern := range pathNormalizationPatterns {
		result = pattern.ReplaceAllString(result, "/[PATH]/")
	}
	result = memAddrPattern.ReplaceAllString(result, "0x...")
	if len(result) > s.cfg.MaxStackTraceSize {
		result = truncateWithMarker(result, s.cfg.MaxStackTraceSize)
	}
	return result
}

// ScrubMore returns a scrubbed copy of an entry's context map. Sensitive keys
// are redacted wholesale; values nested deeper than MaxDepth are replaced.
func (s *Scrubber) ScrubMore(more map[string]any) map[string]any {
	if more == nil {
		return nil
	}
	return s.scrubMap(more, 0)
}

// ScrubEntry returns a scrubbed copy of entry.
func (s *Scrubber) ScrubEntry(entry *Entry) *Entry {
	cp := *entry
	cp.Message = s.ScrubMessage(entry.Message)
	cp.Stack = s.ScrubStackTrace(entry.Stack)
	cp.More = s.ScrubMore(entry.More)
	return &cp
}

func (s *Scrubber) scrubValue(val any, depth int) any {
	if depth > s.cfg.MaxDepth {
		return "[REDACTED:DEPTH]"
	}
	switch v := val.(type) {
	case map[string]any:
		return s.scrubMap(v, depth+1)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = s.scrubValue(item, depth+1)
		}
		return out
	case string:
		return s.scrubString(v)
	case error:
		return s.scrubString(v.Error())
	case fmt.Stringer:
		return s.scrubString(v.String())
	default:
		return v
	}
}

func (s *Scrubber) scrubMap(m map[string]any, depth int) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		if s.isSensitiveKey(key) {
			out[key] = "[REDACTED]"
			continue
		}
		out[key] = s.scrubValue(value, depth)
	}
	return out
}

func (s *Scrubber) scrubString(v string) string {
	if len(v) > s.cfg.MaxValueSize {
		v = truncateWithMarker(v, s.cfg.MaxValueSize)
	}
	if !s.cfg.ScrubMessages {
		return v
	}
	for _, pattern := range messageScrubPatterns {
		v = pattern.ReplaceAllString(v, "[REDACTED]")
	}
	return v
}

func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	for _, pattern := range s.cfg.SensitiveKeys {
		if pattern != "" && strings.Contains(keyLower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}

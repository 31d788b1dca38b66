// fingerprint.go generates stable hashes for grouping similar entries.

package deskerr

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Fingerprint generates a hash for grouping similar entries.
// The fingerprint is based on:
//   - the error name
//   - the wrapped function name, if any
//   - the first 3 stack frames (function names only, normalized)
//
// It ignores messages, timestamps, IDs, line numbers and memory addresses.
func Fingerprint(entry *Entry) string {
	var parts []string
	parts = append(parts, entry.Name)
	if fn, ok := entry.More[MoreFunctionName].(string); ok {
		parts = append(parts, fn)
	} else {
		parts = append(parts, "")
	}
	parts = append(parts, normalizeStackTrace(entry.Stack)...)

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

var (
	// Matches function names like "main.doSomething" or "pkg/subpkg.(*T).Method".
	funcNamePattern = regexp.MustCompile(`^([a-zA-Z0-9_./()*\[\]-]+\.[a-zA-Z0-9_]+)`)

	memAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	offsetPattern  = regexp.MustCompile(`\+0x[0-9a-fA-F]+`)
)

// normalizeStackTrace extracts the first 3 function names from a stack trace,
// dropping file lines, offsets and addresses.
func normalizeStackTrace(trace string) []string {
	if trace == "" {
		return nil
	}

	var frames []string
	for _, line := range strings.Split(trace, "\n") {
		// File lines are tab-indented.
		if strings.HasPrefix(line, "\t") {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "goroutine ") || strings.HasPrefix(line, "/") {
			continue
		}

		funcLine := offsetPattern.ReplaceAllString(line, "")
		funcLine = memAddrPattern.ReplaceAllString(funcLine, "")
		if idx := strings.LastIndex(funcLine, "("); idx > 0 && strings.HasSuffix(funcLine, ")") {
			funcLine = funcLine[:idx]
		}

		if match := funcNamePattern.FindString(strings.TrimSpace(funcLine)); match != "" {
			frames = append(frames, match)
			if len(frames) >= 3 {
				break
			}
		}
	}
	return frames
}

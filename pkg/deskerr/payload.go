// payload.go defines the report payload sent to the remote collector.

package deskerr

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// ReportPayload is the stable JSON contract between the reporter and the
// collector.
type ReportPayload struct {
	ErrorName   string `json:"error_name"`
	Message     string `json:"message"`
	Stack       string `json:"stack"`
	Platform    string `json:"platform"`
	Version     string `json:"version"`
	Language    string `json:"language"`
	InstanceID  string `json:"instance_id"`
	OpenCount   int    `json:"open_count"`
	CountryCode string `json:"country_code"`

	// More is the JSON encoding of the entry's context map.
	More string `json:"more"`
}

// Report is what sinks receive: the payload plus identity for idempotent
// storage.
type Report struct {
	EventID     string
	Timestamp   time.Time
	Fingerprint string
	Payload     ReportPayload
}

// NewReportPayload flattens an entry and an environment snapshot.
func NewReportPayload(entry *Entry, env Environment) ReportPayload {
	return ReportPayload{
		ErrorName:   entry.Name,
		Message:     entry.Message,
		Stack:       entry.Stack,
		Platform:    env.Platform,
		Version:     env.Version,
		Language:    env.Language,
		InstanceID:  env.InstanceID,
		OpenCount:   env.OpenCount,
		CountryCode: env.CountryCode,
		More:        EncodeMore(entry.More),
	}
}

// EncodeMore renders a context map as a JSON object string. Self-referencing
// maps and slices are cut with "[Circular]", and values that still cannot be
// encoded (channels, funcs, pointer cycles) fall back to their %v rendering
// so one bad value never drops the rest.
func EncodeMore(more map[string]any) string {
	if len(more) == 0 {
		return "{}"
	}
	clean := sanitize(more, map[uintptr]bool{}).(map[string]any)
	if data, err := json.Marshal(clean); err == nil {
		return string(data)
	}

	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	safe := make(map[string]json.RawMessage, len(clean))
	for _, k := range keys {
		data, err := json.Marshal(clean[k])
		if err != nil {
			data, _ = json.Marshal(fmt.Sprintf("%v", clean[k]))
		}
		safe[k] = data
	}
	data, err := json.Marshal(safe)
	if err != nil {
		return "{}"
	}
	return string(data)
}

const circularMarker = "[Circular]"

// sanitize copies maps and slices, replacing errors with their messages
// (encoding/json renders most error values as "{}") and back-references with
// circularMarker. onPath holds the containers on the current path.
func sanitize(v any, onPath map[uintptr]bool) any {
	switch val := v.(type) {
	case error:
		return val.Error()
	case map[string]any:
		ptr := reflect.ValueOf(val).Pointer()
		if onPath[ptr] {
			return circularMarker
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)

		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = sanitize(item, onPath)
		}
		return out
	case []any:
		if len(val) == 0 {
			return val
		}
		ptr := reflect.ValueOf(val).Pointer()
		if onPath[ptr] {
			return circularMarker
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)

		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitize(item, onPath)
		}
		return out
	default:
		return v
	}
}

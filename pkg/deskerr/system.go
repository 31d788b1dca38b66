// system.go captures process state attached to panic entries.

package deskerr

import (
	"runtime"
	"time"
)

// MoreSystem holds the process state on entries created from panics.
const MoreSystem = "system"

var processStart = time.Now()

// SystemState is a snapshot of process resource usage.
type SystemState struct {
	MemoryBytes    int64
	GoroutineCount int
	UptimeMs       int64
}

// CaptureSystemState reads the current process state. Uptime is measured
// from startTime and clamped to zero.
func CaptureSystemState(startTime time.Time) SystemState {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptimeMs := time.Since(startTime).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return SystemState{
		MemoryBytes:    int64(memStats.Alloc),
		GoroutineCount: runtime.NumGoroutine(),
		UptimeMs:       uptimeMs,
	}
}

// Fields renders the state as a More value. The host name is left out so
// reports do not identify the machine.
func (s SystemState) Fields() map[string]any {
	return map[string]any{
		"memoryBytes":    s.MemoryBytes,
		"goroutineCount": s.GoroutineCount,
		"uptimeMs":       s.UptimeMs,
	}
}

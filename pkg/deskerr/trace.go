// trace.go exposes the package tracer. Spans are no-ops unless the host
// process installs an OpenTelemetry tracer provider.

package deskerr

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/strongdm/deskerr/pkg/deskerr"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

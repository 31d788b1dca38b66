// env.go captures the application/environment snapshot attached to reports.

package deskerr

import (
	"context"
	"runtime"
)

// Environment is the process-wide application state a report carries.
type Environment struct {
	// Platform is the OS family: "Mac", "Windows" or "Linux".
	Platform string

	// Version is the application version.
	Version string

	// Language is the configured UI language tag.
	Language string

	// InstanceID identifies the installation.
	InstanceID string

	// OpenCount is how many times the application has been opened.
	OpenCount int

	// CountryCode is the optional configured country, e.g. "in".
	CountryCode string

	// DevMode enables development diagnostics.
	DevMode bool
}

// EnvironmentProvider supplies a fresh snapshot for each report.
type EnvironmentProvider interface {
	Environment(ctx context.Context) Environment
}

// StaticEnvironment is an EnvironmentProvider that always returns itself.
type StaticEnvironment Environment

// Environment returns the snapshot.
func (s StaticEnvironment) Environment(ctx context.Context) Environment {
	return Environment(s)
}

// EnvironmentFunc adapts a function to EnvironmentProvider.
type EnvironmentFunc func(ctx context.Context) Environment

// Environment calls f.
func (f EnvironmentFunc) Environment(ctx context.Context) Environment {
	return f(ctx)
}

// DefaultPlatform maps runtime.GOOS to the platform names used in reports.
func DefaultPlatform() string {
	return platformFor(runtime.GOOS)
}

func platformFor(goos string) string {
	switch goos {
	case "darwin":
		return "Mac"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	default:
		return goos
	}
}

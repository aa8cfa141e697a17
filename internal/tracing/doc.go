// Package tracing wraps OpenTelemetry so the executor and coordinator can
// open spans without importing the SDK. When tracing is never initialised
// the global no-op provider makes every span free.
package tracing

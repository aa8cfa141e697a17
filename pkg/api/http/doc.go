// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Single instruction processing, normalization and cache lookups
//   - Workflow composition (JSON or YAML), execution, optimization and cancellation
//   - Status queries
//   - Health checks
//   - Prometheus metrics
package http

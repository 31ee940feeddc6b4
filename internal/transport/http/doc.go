// Package http serves the ops endpoints of a running job: liveness and
// runtime stats on /health, build information on /version, the progress
// snapshot of the current run on /status and Prometheus metrics on /metrics.
//
// The server is optional. It is started only when a metrics address is
// configured and is shut down once the run finishes.
//
// # Middleware
//
// Requests pass through RequestID, OpenTelemetry, the slog request logger
// and the panic recoverer, in that order. Errors are rendered as RFC 7807
// problem details:
//
//	{
//	    "type": "/errors/service-unavailable",
//	    "title": "Service Unavailable",
//	    "status": 503,
//	    "detail": "no run attached",
//	    "instance": "/status"
//	}
package http

// Package httpserver exposes the partition manager's diagnostic state over
// HTTP: liveness and readiness probes, and the dump of every live partition
// context with its address-space mappings.
//
// Endpoints:
//
//	GET /livez                       - liveness probe
//	GET /readyz                      - readiness probe
//	GET /drain, /undrain             - readiness toggling for rollouts
//	GET /api/partitions              - diagnostics snapshot of live contexts
//	GET /api/partitions/{id}         - one context, with mappings
//
// The server is read-only: session and invoke traffic never flows through
// it; that surface belongs to the task-session host consuming the partition
// package directly.
package httpserver

// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Backend request counts and latencies by operation and outcome
//   - Orderbook poll results
//   - Feed messages by type
//   - Session state transitions
//
// Collectors are registered on an injected prometheus.Registerer; nothing is
// registered globally.
package metrics

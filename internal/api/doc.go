// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs performs one snapshot run and returns its report.
//   - GET /v1/runs lists recent ledger entries when a ledger is configured.
package api

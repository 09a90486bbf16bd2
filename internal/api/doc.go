// Package api hosts the HTTP server, middleware, and handlers of the relay.
// Notable routes:
//   - POST /post accepts the caption, platform selection and optional media.
//   - GET /api/health reports status, timestamp and environment.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api

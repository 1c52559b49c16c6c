// Package api provides the HTTP API for finsight, built on Echo.
//
// Routes:
//
//	POST /api/analyze        run an analysis, returns the structured result
//	GET  /api/health         liveness plus index and model state
//	GET  /api/stats          pipeline statistics
//	GET  /api/history        recent analyses, newest first (?limit=N)
//	GET  /api/history/:id    one stored analysis
//	GET  /metrics            Prometheus metrics, when an exporter is configured
//
// Errors are returned as {"detail": "..."}. Failures caused by the request
// are reported as 400, pipeline and provider failures as 500.
package api

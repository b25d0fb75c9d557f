// Package api serves the status of a running crawl over HTTP. Routes:
//   - GET /healthz and /readyz for probes; readyz turns 200 once the crawl starts.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/stats for live counters and GET /v1/results for the results so far.
package api

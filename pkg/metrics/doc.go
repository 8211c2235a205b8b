/*
Package metrics exposes Quarry's Prometheus metrics and the region daemon's
health endpoints.

All metrics are registered on the default registry at init time and served
by Handler(). The discovery coordinator records round counts, round
durations, and per-category failure counters; the registry keeps the rack
status gauge current; the API server feeds the request counters through its
interceptor.

HealthHandler and ReadyHandler back the /health and /ready HTTP endpoints.
Components (raft, api, registry) report their state with RegisterComponent
and UpdateComponent; readiness requires all critical components healthy.
*/
package metrics

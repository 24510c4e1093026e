// Package gateway orchestrates the crm-gateway server components.
//
// # Overview
//
// The gateway owns the store, the rotation engine, the event publisher, and
// the HTTP server. It registers routes, applies JWT auth when configured, and
// runs the server until its context is canceled.
//
// # HTTP API
//
// Health (no auth):
//
//	GET  /health              liveness
//	GET  /health/ready        pings the store
//	GET  /metrics             Prometheus scrape (when metrics.enabled)
//
// Assignment:
//
//	POST /leads/assign        {"lead_id": "..."}
//	POST /leads/assign-batch  {"log_ids": ["...", "..."]}
//
// Validation failures return 400. Every other assignment failure returns 500
// with a short message such as "no active team members in lead rotation".
//
// Records:
//
//	GET|POST        /api/team-members
//	GET|PUT|DELETE  /api/team-members/{id}
//	GET|POST        /api/leads            (?status=&agent=&limit=)
//	GET|PUT|DELETE  /api/leads/{id}
//	GET|POST        /api/communications   (?limit=)
//	GET|POST        /api/properties
//
// Rotation:
//
//	GET  /api/rotation        roster, cursor, next agent, mode
//	POST /api/rotation/reset  admin or service_role only
//
// When auth.jwt_secret is set, /api/* and /leads/* require a bearer token.
package gateway

// Package api implements the REST API of the stats service.
//
// Routes:
//
//	GET  /api/v1/cluster/stats        one freshly assembled cluster snapshot
//	GET  /api/v1/cluster/diagnostics  plain-language hints derived from a snapshot
//	GET  /api/v1/alerts               firing and recently resolved alerts
//	PUT  /api/v1/space/{name}         create or update a space
//	GET  /metrics                     Prometheus exposition
//
// Every /api/v1 route is restricted to the admin and user roles. Snapshot
// counts that could not be computed are rendered as -1.
package api

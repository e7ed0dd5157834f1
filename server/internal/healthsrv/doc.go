// Package healthsrv serves grpc.health.v1.Health for the stats service.
//
// Status is SERVING while at least one coordinator is live in the node
// registry and NOT_SERVING otherwise. It is reported both for the empty
// service name and for ServiceName.
package healthsrv

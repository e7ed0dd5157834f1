// Package nodes tracks the live coordinators and executors of the cluster.
//
// A Poller scrapes every configured node's Prometheus text endpoint on a
// fixed interval and stores the resulting descriptor in a Registry. The
// Registry only lists nodes seen within its TTL, in configured target order,
// and satisfies the node lookup the stats assembler depends on.
package nodes

// Package cluster implements the coordinator's topology transport: an
// HTTP/JSON exchange used by CLUSTERREFRESH to fetch a topology descriptor
// from an external source, and by topology propagation to push the
// coordinator's own topology to a peer coordinator.
//
// The RESP connections to search shards carry data-plane traffic only
// (FT.SEARCH, FT.AGGREGATE, and friends); this package is strictly
// control-plane, and every call takes a context so a slow or unreachable
// peer cannot block a CLUSTERREFRESH indefinitely.
package cluster

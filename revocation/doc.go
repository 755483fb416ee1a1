// Package revocation tracks explicitly invalidated token identifiers until
// their underlying tokens would have expired anyway.
//
// # Design
//
// The [Registry] fronts a [Store]. Two stores ship: an in-process map for
// tests and single-instance deployments, and a Redis store for multi-instance
// topologies where a logout on one instance must be visible to all. The
// registry is a cache with an implied backing store, not a database: entries
// survive process restarts only with the Redis store.
//
// # Sweep contract
//
// Entries are only ever removed by Sweep (or Redis TTL), and only once the
// token they refer to is itself expired. A still-valid token can never be
// safely forgotten, however old its revocation entry is.
package revocation

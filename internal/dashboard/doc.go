// Package dashboard assembles the per-subject dashboard from the identity,
// attendance and leave history services.
//
// An Aggregator looks the Key up in the ResponseCache first. A cached
// composite is served with probability p (0.8 by default); the other
// requests fall through to a fresh fan-out even though an entry exists,
// which spreads recomputation over time instead of concentrating it at
// TTL expiry. A fan-out calls the three services concurrently and waits
// for all of them. The result is all-or-nothing: a single failed service
// fails the whole aggregation with an *AggregationError, and only a
// complete composite is written back to the cache.
//
// The cache is fail-open. Read errors count as misses and write errors
// are logged and dropped.
package dashboard

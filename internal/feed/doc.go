// Package feed streams orderbook snapshots over a WebSocket.
//
// A Client dials once, subscribes to the orderbook channel for a set of
// market ids and publishes each orderbook_snapshot as an Update. It pings on
// an interval and reports ErrStaleConnection when the server stops
// answering. There is no automatic reconnect: when Errors fires, the caller
// decides whether to dial again.
package feed

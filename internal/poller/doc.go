// Package poller implements the orderbook poller.
//
// The poller:
//   - Fetches GET /orderbooks/market/{id} for a set of markets on an interval
//   - Bounds in-flight requests with an errgroup limit
//   - Normalizes each book into a fixed-depth display ladder
//   - Makes one attempt per market per cycle; failures wait for the next tick
package poller

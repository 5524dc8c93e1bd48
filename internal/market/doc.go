// Package market keeps a catalog of tradable markets discovered from the
// backend's event listing.
//
// The Registry pages through /events on Start and then reconciles on an
// interval, emitting a Change for every market that appears or changes
// status. It implements poller.MarketSource so the poller can follow the
// active set without a static market list.
package market

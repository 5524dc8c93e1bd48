// Package api is the request pipeline for the trading backend.
//
// Every call goes through Client.Send (raw bytes) or Do (typed decode), which
// perform exactly one attempt: no retries, no backoff. Failures are classified
// into a closed set of kinds (see Kind); IsRetryableNetworkError tells callers
// whether the problem is connectivity rather than a bad request.
//
// Unauthenticated endpoints:
//   - POST /signup, POST /signin
//   - GET /events, /events/{id}, /events/search
//   - GET /orderbooks/market/{id}, GET /health
//
// Authenticated endpoints (Authorization: Bearer <credential>):
//   - /orders, /positions, /trades, /users/{id}, /get-balance, /onramp
package api

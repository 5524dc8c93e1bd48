// Package model defines shared domain types used across the trading client core.
//
// Conventions:
//   - Prices: integer cents of probability (0-100) on the wire, decimal probability (0-1) once normalized
//   - Quantities: contracts, int64
//   - IDs: uint64 for backend entities, uuid.UUID for client order ids
package model

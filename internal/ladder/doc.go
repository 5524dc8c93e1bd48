// Package ladder turns order-book snapshots into fixed-depth display ladders.
//
// When the backend returns fewer levels than requested, the missing levels are
// synthesized from the deepest real level (or a caller-supplied anchor when a
// side is empty): each step moves the price one tick away from the market and
// grows the quantity by a constant factor, so deep synthetic levels read as
// illustrative rather than real liquidity.
//
// Prices are probabilities in [0,1]. Normalization never fails.
package ladder

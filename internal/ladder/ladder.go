package ladder

import (
	"sort"

	"github.com/shopspring/decimal"
)

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
	half = decimal.NewFromFloat(0.5)
)

// Level is a single price level.
type Level struct {
	Price     decimal.Decimal // Probability in [0,1]
	Quantity  decimal.Decimal // Contracts, non-negative
	Synthetic bool            // True when extrapolated rather than reported
}

// Snapshot is an order-book snapshot as reported by the backend.
// Bids are highest price first, asks lowest price first.
type Snapshot struct {
	Bids []Level
	Asks []Level
}

// Ladder is a display ladder with exactly the requested depth on each side.
type Ladder struct {
	Bids []Level
	Asks []Level
}

// Anchor seeds synthesis for a side that has no real levels.
type Anchor struct {
	BestBid  decimal.Decimal
	BestAsk  decimal.Decimal
	Quantity decimal.Decimal // Base size at the anchor, zero selects Config.BaseQuantity
}

// Config controls synthetic level generation.
type Config struct {
	Tick           decimal.Decimal // Price step per synthetic level
	Growth         decimal.Decimal // Quantity multiplier per synthetic level
	BaseQuantity   decimal.Decimal // Anchor size when none is supplied
	QuantityPlaces int32           // Decimal places kept on synthetic quantities
}

// DefaultConfig returns the standard 1-cent tick and 1.2x growth.
func DefaultConfig() Config {
	return Config{
		Tick:           decimal.NewFromFloat(0.01),
		Growth:         decimal.NewFromFloat(1.2),
		BaseQuantity:   decimal.NewFromInt(100),
		QuantityPlaces: 2,
	}
}

// Normalizer builds ladders.
type Normalizer struct {
	cfg Config
}

// New creates a Normalizer. Zero-valued fields fall back to DefaultConfig.
func New(cfg Config) *Normalizer {
	def := DefaultConfig()
	if !cfg.Tick.IsPositive() {
		cfg.Tick = def.Tick
	}
	if cfg.Growth.LessThan(one) {
		cfg.Growth = def.Growth
	}
	if !cfg.BaseQuantity.IsPositive() {
		cfg.BaseQuantity = def.BaseQuantity
	}
	if cfg.QuantityPlaces <= 0 {
		cfg.QuantityPlaces = def.QuantityPlaces
	}
	return &Normalizer{cfg: cfg}
}

type side int

const (
	bidSide side = iota
	askSide
)

// ToLadder expands snapshot to depth levels per side. A nil snapshot yields a
// fully synthetic ladder around anchor.
func (n *Normalizer) ToLadder(snapshot *Snapshot, depth int, anchor Anchor) Ladder {
	if depth <= 0 {
		return Ladder{Bids: []Level{}, Asks: []Level{}}
	}

	var bids, asks []Level
	if snapshot != nil {
		bids, asks = snapshot.Bids, snapshot.Asks
	}

	qty := anchor.Quantity
	if !qty.IsPositive() {
		qty = n.cfg.BaseQuantity
	}

	return Ladder{
		Bids: n.fill(bids, bidSide, depth, clamp(anchor.BestBid), qty),
		Asks: n.fill(asks, askSide, depth, clamp(anchor.BestAsk), qty),
	}
}

func (n *Normalizer) fill(levels []Level, s side, depth int, fallbackPrice, fallbackQty decimal.Decimal) []Level {
	levels = canonical(levels, s)
	if len(levels) >= depth {
		return levels[:depth]
	}

	out := make([]Level, 0, depth)
	out = append(out, levels...)

	step := n.cfg.Tick
	if s == bidSide {
		step = step.Neg()
	}

	price, qty := fallbackPrice, fallbackQty
	k := 0
	if len(levels) > 0 {
		last := levels[len(levels)-1]
		price, qty = last.Price, last.Quantity
		k = 1
	}

	// Grow quantity from the unrounded value so rounding never compounds.
	size := qty
	for i := 0; i < k; i++ {
		size = size.Mul(n.cfg.Growth)
	}

	for ; len(out) < depth; k++ {
		out = append(out, Level{
			Price:     clamp(price.Add(step.Mul(decimal.NewFromInt(int64(k))))),
			Quantity:  size.Round(n.cfg.QuantityPlaces),
			Synthetic: true,
		})
		size = size.Mul(n.cfg.Growth)
	}

	return out
}

// canonical returns a sorted copy without duplicate prices (first one wins).
func canonical(levels []Level, s side) []Level {
	out := make([]Level, len(levels))
	copy(out, levels)

	sort.SliceStable(out, func(i, j int) bool {
		if s == bidSide {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})

	deduped := out[:0]
	for i, l := range out {
		if i > 0 && l.Price.Equal(deduped[len(deduped)-1].Price) {
			continue
		}
		deduped = append(deduped, l)
	}
	return deduped
}

func clamp(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(zero) {
		return zero
	}
	if p.GreaterThan(one) {
		return one
	}
	return p
}

// ProbabilityFromCents converts a cent price (0-100) to a probability.
// Missing prices read as 0.5 and out-of-range prices clamp to [0,1].
func ProbabilityFromCents(cents *int) decimal.Decimal {
	if cents == nil {
		return half
	}
	return clamp(decimal.NewFromInt(int64(*cents)).Div(decimal.NewFromInt(100)))
}

// AnchorFromCents builds an Anchor from optional best bid/ask cent prices.
func AnchorFromCents(bestBid, bestAsk *int) Anchor {
	return Anchor{
		BestBid: ProbabilityFromCents(bestBid),
		BestAsk: ProbabilityFromCents(bestAsk),
	}
}

// Synthetic counts the synthesized levels on both sides.
func (l Ladder) Synthetic() int {
	n := 0
	for _, lvl := range l.Bids {
		if lvl.Synthetic {
			n++
		}
	}
	for _, lvl := range l.Asks {
		if lvl.Synthetic {
			n++
		}
	}
	return n
}

package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/predict-core/internal/ladder"
	"github.com/rickgao/predict-core/internal/model"
)

// ParseTimestamp parses an ISO 8601 timestamp.
// Returns the zero time for empty or invalid input.
func ParseTimestamp(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return time.Time{}
		}
	}

	return t
}

// ToModel converts an APIUser to model.User.
func (u *APIUser) ToModel() model.User {
	return model.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Balance:     u.Balance,
	}
}

// ToModel converts an APIEvent to model.Event.
func (e *APIEvent) ToModel() model.Event {
	markets := make([]model.Market, 0, len(e.Markets))
	for i := range e.Markets {
		markets = append(markets, e.Markets[i].ToModel())
	}

	return model.Event{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Status:      e.Status,
		EndsAt:      ParseTimestamp(e.EndDate),
		Markets:     markets,
	}
}

// ToModel converts an APIMarket to model.Market. A missing price maps to
// 0.5 so one unquoted side never blocks the rest of the event.
func (m *APIMarket) ToModel() model.Market {
	return model.Market{
		ID:             m.ID,
		EventID:        m.EventID,
		Question:       m.Question,
		Status:         m.Status,
		YesProbability: ladder.ProbabilityFromCents(m.YesPrice),
		NoProbability:  ladder.ProbabilityFromCents(m.NoPrice),
		Volume:         m.Volume,
	}
}

// ToModel converts an APIOrder to model.Order.
func (o *APIOrder) ToModel() model.Order {
	clientID, err := uuid.Parse(o.ClientOrderID)
	if err != nil {
		clientID = uuid.Nil
	}

	return model.Order{
		ID:            o.ID,
		ClientOrderID: clientID,
		MarketID:      o.MarketID,
		Side:          o.Side,
		Action:        o.Action,
		Price:         o.Price,
		Quantity:      o.Quantity,
		Filled:        o.Filled,
		Status:        o.Status,
		CreatedAt:     ParseTimestamp(o.CreatedAt),
	}
}

// ToModel converts an APIPosition to model.Position.
func (p *APIPosition) ToModel() model.Position {
	return model.Position{
		MarketID:     p.MarketID,
		Side:         p.Side,
		Quantity:     p.Quantity,
		AveragePrice: p.AveragePrice,
	}
}

// ToModel converts an APITrade to model.Trade.
func (t *APITrade) ToModel() model.Trade {
	return model.Trade{
		ID:         t.ID,
		OrderID:    t.OrderID,
		MarketID:   t.MarketID,
		Side:       t.Side,
		Price:      t.Price,
		Quantity:   t.Quantity,
		ExecutedAt: ParseTimestamp(t.ExecutedAt),
	}
}

// ToSnapshot converts cent-priced level pairs to a ladder.Snapshot.
// Malformed pairs and negative quantities are skipped.
func (o *APIOrderbook) ToSnapshot() ladder.Snapshot {
	return ladder.Snapshot{
		Bids: toLevels(o.Bids),
		Asks: toLevels(o.Asks),
	}
}

// Anchor returns the fallback anchor for sides with no levels. An empty side
// is placed one cent outside the opposite best price; with no quotes at all
// both sides sit at 0.5.
func (o *APIOrderbook) Anchor() ladder.Anchor {
	bestBid, bestAsk := bestCents(o.Bids, true), bestCents(o.Asks, false)

	if bestBid == nil && bestAsk != nil {
		v := *bestAsk - 1
		bestBid = &v
	}
	if bestAsk == nil && bestBid != nil {
		v := *bestBid + 1
		bestAsk = &v
	}

	return ladder.AnchorFromCents(bestBid, bestAsk)
}

func toLevels(pairs [][]int64) []ladder.Level {
	levels := make([]ladder.Level, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 || pair[1] < 0 {
			continue
		}
		cents := int(pair[0])
		levels = append(levels, ladder.Level{
			Price:    ladder.ProbabilityFromCents(&cents),
			Quantity: decimal.NewFromInt(pair[1]),
		})
	}
	return levels
}

// bestCents returns the highest price when high is set, else the lowest.
func bestCents(pairs [][]int64, high bool) *int {
	var best *int
	for _, pair := range pairs {
		if len(pair) < 2 || pair[1] < 0 {
			continue
		}
		v := int(pair[0])
		if best == nil || (high && v > *best) || (!high && v < *best) {
			best = &v
		}
	}
	return best
}

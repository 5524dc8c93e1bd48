package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// GetMarketOrderbook fetches the current orderbook for a market.
func (c *Client) GetMarketOrderbook(ctx context.Context, marketID uint64) (*APIOrderbook, error) {
	resp, err := Do[Envelope[APIOrderbook]](ctx, c, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/orderbooks/market/" + strconv.FormatUint(marketID, 10),
		Operation: "get_orderbook",
	})
	if err != nil {
		return nil, fmt.Errorf("get orderbook %d: %w", marketID, err)
	}

	book := resp.Data
	if book.MarketID == 0 {
		book.MarketID = marketID
	}
	return &book, nil
}

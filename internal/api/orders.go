package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// PlaceOrder submits a limit order. A client order id is generated when the
// request does not carry one, so the caller can reconcile after a network
// failure.
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*APIOrder, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}
	if req.Price < 1 || req.Price > 99 {
		return nil, &Error{Kind: KindInvalidRequest, Err: fmt.Errorf("price %d out of range 1-99", req.Price)}
	}
	if req.Quantity <= 0 {
		return nil, &Error{Kind: KindInvalidRequest, Err: fmt.Errorf("quantity must be positive")}
	}

	body, err := JSONBody(req)
	if err != nil {
		return nil, err
	}

	resp, err := Do[Envelope[APIOrder]](ctx, c, RequestSpec{
		Method:       http.MethodPost,
		Path:         "/orders",
		Body:         body,
		RequiresAuth: true,
		Operation:    "place_order",
	})
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	return &resp.Data, nil
}

// GetOrders lists the caller's orders.
func (c *Client) GetOrders(ctx context.Context, opts GetOrdersOptions) ([]APIOrder, error) {
	query := url.Values{}
	if opts.MarketID != 0 {
		query.Set("market_id", strconv.FormatUint(opts.MarketID, 10))
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}

	resp, err := Do[Envelope[[]APIOrder]](ctx, c, RequestSpec{
		Method:       http.MethodGet,
		Path:         "/orders",
		Query:        query,
		RequiresAuth: true,
		Operation:    "get_orders",
	})
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}

	return resp.Data, nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, orderID uint64) (*APIOrder, error) {
	resp, err := Do[Envelope[APIOrder]](ctx, c, RequestSpec{
		Method:       http.MethodGet,
		Path:         "/orders/" + strconv.FormatUint(orderID, 10),
		RequiresAuth: true,
		Operation:    "get_order",
	})
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}

	return &resp.Data, nil
}

// CancelOrder cancels an open order. The backend replies with no body.
func (c *Client) CancelOrder(ctx context.Context, orderID uint64) error {
	_, err := Do[NoContent](ctx, c, RequestSpec{
		Method:       http.MethodDelete,
		Path:         "/orders/" + strconv.FormatUint(orderID, 10),
		RequiresAuth: true,
		Operation:    "cancel_order",
	})
	if err != nil {
		return fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	return nil
}

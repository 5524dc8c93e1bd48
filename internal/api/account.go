package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// GetUser fetches a user profile. Requires a credential.
func (c *Client) GetUser(ctx context.Context, userID uint64) (*APIUser, error) {
	resp, err := Do[Envelope[APIUser]](ctx, c, RequestSpec{
		Method:       http.MethodGet,
		Path:         "/users/" + strconv.FormatUint(userID, 10),
		RequiresAuth: true,
		Operation:    "get_user",
	})
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}

	return &resp.Data, nil
}

// GetBalance returns the caller's available balance in cents.
func (c *Client) GetBalance(ctx context.Context) (*APIBalance, error) {
	resp, err := Do[Envelope[APIBalance]](ctx, c, RequestSpec{
		Method:       http.MethodGet,
		Path:         "/get-balance",
		RequiresAuth: true,
		Operation:    "get_balance",
	})
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	return &resp.Data, nil
}

// GetPositions lists the caller's open positions.
func (c *Client) GetPositions(ctx context.Context) ([]APIPosition, error) {
	resp, err := Do[Envelope[[]APIPosition]](ctx, c, RequestSpec{
		Method:       http.MethodGet,
		Path:         "/positions",
		RequiresAuth: true,
		Operation:    "get_positions",
	})
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	return resp.Data, nil
}

// GetTrades lists the caller's executed trades.
func (c *Client) GetTrades(ctx context.Context) ([]APITrade, error) {
	resp, err := Do[Envelope[[]APITrade]](ctx, c, RequestSpec{
		Method:       http.MethodGet,
		Path:         "/trades",
		RequiresAuth: true,
		Operation:    "get_trades",
	})
	if err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}

	return resp.Data, nil
}

// Onramp credits the caller's balance and returns the new balance.
func (c *Client) Onramp(ctx context.Context, amountCents int64) (*APIBalance, error) {
	if amountCents <= 0 {
		return nil, &Error{Kind: KindInvalidRequest, Err: fmt.Errorf("onramp amount must be positive")}
	}

	body, err := JSONBody(OnrampRequest{Amount: amountCents})
	if err != nil {
		return nil, err
	}

	resp, err := Do[Envelope[APIBalance]](ctx, c, RequestSpec{
		Method:       http.MethodPost,
		Path:         "/onramp",
		Body:         body,
		RequiresAuth: true,
		Operation:    "onramp",
	})
	if err != nil {
		return nil, fmt.Errorf("onramp: %w", err)
	}

	return &resp.Data, nil
}

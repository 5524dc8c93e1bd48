package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GetEvents fetches a page of events.
func (c *Client) GetEvents(ctx context.Context, opts GetEventsOptions) ([]APIEvent, error) {
	query := url.Values{}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Category != "" {
		query.Set("category", opts.Category)
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}

	resp, err := Do[Envelope[[]APIEvent]](ctx, c, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/events",
		Query:     query,
		Operation: "get_events",
	})
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}

	return resp.Data, nil
}

// GetEvent fetches a single event with its markets.
func (c *Client) GetEvent(ctx context.Context, eventID uint64) (*APIEvent, error) {
	resp, err := Do[Envelope[APIEvent]](ctx, c, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/events/" + strconv.FormatUint(eventID, 10),
		Operation: "get_event",
	})
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", eventID, err)
	}

	return &resp.Data, nil
}

// SearchEvents runs a free-text search over event titles.
func (c *Client) SearchEvents(ctx context.Context, q string) ([]APIEvent, error) {
	if q == "" {
		return nil, &Error{Kind: KindInvalidRequest, Err: fmt.Errorf("search query is required")}
	}

	resp, err := Do[Envelope[[]APIEvent]](ctx, c, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/events/search",
		Query:     url.Values{"q": {q}},
		Operation: "search_events",
	})
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}

	return resp.Data, nil
}

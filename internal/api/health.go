package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Health checks the backend with the short health timeout. Any 2xx is
// healthy; the body is parsed leniently since some deployments reply with
// plain text.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	body, err := c.Send(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/health",
		Timeout:   c.healthTimeout,
		Operation: "health",
	})
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}

	var resp HealthResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Status == "" {
		resp.Status = strings.TrimSpace(string(body))
	}
	if resp.Status == "" {
		resp.Status = "ok"
	}
	return &resp, nil
}

package api

import (
	"context"
	"fmt"
	"net/http"
)

// SignUp creates an account and returns the issued credential and user.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	body, err := JSONBody(req)
	if err != nil {
		return nil, err
	}

	resp, err := Do[Envelope[AuthResponse]](ctx, c, RequestSpec{
		Method:    http.MethodPost,
		Path:      "/signup",
		Body:      body,
		Operation: "signup",
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	return &resp.Data, nil
}

// SignIn exchanges email and password for a credential.
func (c *Client) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	body, err := JSONBody(req)
	if err != nil {
		return nil, err
	}

	resp, err := Do[Envelope[AuthResponse]](ctx, c, RequestSpec{
		Method:    http.MethodPost,
		Path:      "/signin",
		Body:      body,
		Operation: "signin",
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	return &resp.Data, nil
}

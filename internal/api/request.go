package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/predict-core/internal/auth"
)

// RequestSpec describes one request. It is built per call and never shared.
type RequestSpec struct {
	Method       string
	Path         string // Must start with "/"
	Query        url.Values
	Body         []byte      // Encoded JSON, nil for no body
	Header       http.Header // Caller headers, applied after the defaults
	RequiresAuth bool
	Timeout      time.Duration // Overrides the client timeout when > 0
	Operation    string        // Label for logs and metrics, defaults to "METHOD path"
}

// NoContent is the decode target for endpoints that return no body.
type NoContent struct{}

// JSONBody encodes v for use as RequestSpec.Body.
func JSONBody(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Err: fmt.Errorf("encode body: %w", err)}
	}
	return data, nil
}

// Send performs the request and returns the raw 2xx body.
func (c *Client) Send(ctx context.Context, spec RequestSpec) ([]byte, error) {
	start := time.Now()
	body, status, err := c.roundTrip(ctx, spec)
	c.record(spec, status, err, start)
	return body, err
}

// Do performs the request and decodes the 2xx body into T.
func Do[T any](ctx context.Context, c *Client, spec RequestSpec) (T, error) {
	var out T

	start := time.Now()
	body, status, err := c.roundTrip(ctx, spec)
	if err == nil {
		err = decodeBody(body, &out)
	}
	c.record(spec, status, err, start)

	return out, err
}

// roundTrip performs exactly one attempt.
func (c *Client) roundTrip(ctx context.Context, spec RequestSpec) ([]byte, int, error) {
	var credential string
	if spec.RequiresAuth {
		value, ok, err := c.readCredential()
		if err != nil {
			c.logger.Warn("credential read failed", "error", err)
			return nil, 0, &Error{Kind: KindAuthenticationRequired, Err: err}
		}
		if !ok {
			return nil, 0, ErrAuthenticationRequired
		}
		credential = value
	}

	fullURL, err := c.buildURL(spec)
	if err != nil {
		return nil, 0, &Error{Kind: KindInvalidRequest, Err: err}
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if len(spec.Body) > 0 {
		reqBody = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, fullURL, reqBody)
	if err != nil {
		return nil, 0, &Error{Kind: KindInvalidRequest, Err: fmt.Errorf("create request: %w", err)}
	}
	c.applyHeaders(req, spec, credential)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, &Error{Kind: KindNetwork, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &Error{Kind: KindNetwork, Err: fmt.Errorf("read response: %w", err)}
	}

	// 401 is authoritative; the body is not consulted.
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, resp.StatusCode, &Error{
			Kind:       KindAuthenticationRequired,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			Body:       body,
		}
	}

	return body, resp.StatusCode, nil
}

func (c *Client) readCredential() (string, bool, error) {
	if c.credentials == nil {
		return "", false, nil
	}
	value, ok, err := c.credentials.Read()
	if err != nil {
		return "", false, err
	}
	return value, ok && value != "", nil
}

// buildURL joins base, path and encoded query.
func (c *Client) buildURL(spec RequestSpec) (string, error) {
	switch spec.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return "", fmt.Errorf("unsupported method %q", spec.Method)
	}

	if !strings.HasPrefix(spec.Path, "/") {
		return "", fmt.Errorf("path %q must start with /", spec.Path)
	}

	fullURL := c.baseURL + spec.Path
	if len(spec.Query) > 0 {
		fullURL += "?" + spec.Query.Encode()
	}

	u, err := url.Parse(fullURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", fullURL)
	}

	return u.String(), nil
}

// applyHeaders sets defaults, then caller headers, then the bearer header.
func (c *Client) applyHeaders(req *http.Request, spec RequestSpec, credential string) {
	req.Header.Set("Accept", "application/json")
	if len(spec.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	for key, values := range spec.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if credential != "" {
		req.Header.Set("Authorization", auth.BearerHeader(credential))
	}
}

// decodeBody decodes a 2xx body into out.
func decodeBody[T any](body []byte, out *T) error {
	if _, ok := any(out).(*NoContent); ok {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &Error{Kind: KindDecoding, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindDecoding, Err: err}
	}
	return nil
}

// record logs the outcome and notifies the observer.
func (c *Client) record(spec RequestSpec, status int, err error, start time.Time) {
	elapsed := time.Since(start)
	op := spec.Operation
	if op == "" {
		op = spec.Method + " " + spec.Path
	}

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}

	if c.observer != nil {
		c.observer.ObserveRequest(op, outcome, status, elapsed)
	}

	if err != nil {
		c.logger.Debug("request failed",
			"operation", op,
			"status", status,
			"outcome", outcome,
			"duration", elapsed,
			"error", err,
		)
		return
	}

	c.logger.Debug("request completed",
		"operation", op,
		"status", status,
		"duration", elapsed,
	)
}

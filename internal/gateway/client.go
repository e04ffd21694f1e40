package gateway

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
)

var (
	// ErrUnavailable covers transport failures, timeouts and 5xx answers.
	// Callers may retry.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrRejected is returned for 4xx answers.
	ErrRejected = errors.New("payment gateway rejected the request")
)

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

type CreateOrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
}

// Order is the gateway's view of a payment order. Amount is in minor units.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Client struct {
	baseURL *url.URL
	keyID   string
	secret  string
	http    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	const op = "gateway.NewClient"

	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q is not absolute", op, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: u,
		keyID:   cfg.KeyID,
		secret:  cfg.KeySecret,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// CreateOrder opens a payment order for the given amount.
//
// Returns:
//   - *Order: the created order, including its gateway id.
//   - error: gateway.ErrUnavailable or gateway.ErrRejected.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	const op = "gateway.Client.CreateOrder"

	body, err := json.Marshal(map[string]any{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &out); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

// FetchOrder reads an existing order by its gateway id.
func (c *Client) FetchOrder(ctx context.Context, id string) (*Order, error) {
	const op = "gateway.Client.FetchOrder"

	if id == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrRejected)
	}

	var out Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, rd)
	if err != nil {
		return err
	}

	req.SetBasicAuth(c.keyID, c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, errorDescription(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return nil
}

func errorDescription(raw []byte) string {
	var body struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Description != "" {
		return body.Error.Description
	}
	return strings.TrimSpace(string(raw))
}

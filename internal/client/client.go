// Package client is a small REST client for the inventory API with bounded
// retries.
package client

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

	"inventory/internal/catalog"
	"inventory/internal/models"

	"github.com/cenkalti/backoff/v4"
)

// Options tune the retry behaviour. Zero values take the defaults.
type Options struct {
	MaxRetries     uint64
	Delay          time.Duration
	AttemptTimeout time.Duration
	HTTPClient     *http.Client
}

// Client talks to one API base URL.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	opts    Options
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api responded %d: %s", e.Status, e.Message)
}

func New(baseURL, token string, opts Options) *Client {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 1
	}
	if opts.Delay == 0 {
		opts.Delay = 700 * time.Millisecond
	}
	if opts.AttemptTimeout == 0 {
		opts.AttemptTimeout = 8 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc, opts: opts}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	in := models.LoginInput{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// ListProducts fetches the product listing for q.
func (c *Client) ListProducts(ctx context.Context, q catalog.Query) ([]models.Product, error) {
	params := url.Values{}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Sort != "" {
		params.Set("sort", string(q.Sort))
	}
	path := "/api/products"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ProductStats fetches the listing summary.
func (c *Client) ProductStats(ctx context.Context) (models.ProductStats, error) {
	var stats models.ProductStats
	err := c.do(ctx, http.MethodGet, "/api/products/stats", nil, &stats)
	return stats, err
}

// do sends the request, retrying transport errors and 5xx answers with a
// fixed delay. 4xx answers are returned at once.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.Delay), c.opts.MaxRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		return c.attempt(ctx, method, path, body, out)
	}, policy)
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(raw, &msg)
		text := msg.Message
		if msg.Error != "" {
			text = msg.Message + ": " + msg.Error
		}
		serr := &StatusError{Status: resp.StatusCode, Message: text}
		if resp.StatusCode < 500 {
			return backoff.Permanent(serr)
		}
		return serr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Status == status
}

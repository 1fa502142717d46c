package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// client wraps http.Client with JSON helpers bound to one base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends req and decodes a 200 JSON body into out.
func (c *client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: HTTP %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *client) health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

func (c *client) submit(ctx context.Context, s Submission) (Entry, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(payload))
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out Entry
	if err := c.do(req, &out); err != nil {
		return Entry{}, err
	}
	return out, nil
}

// best returns nil when the player has no record.
func (c *client) best(ctx context.Context, name string) (*Entry, error) {
	var out struct {
		Item *Entry `json:"item"`
	}
	if err := c.get(ctx, "/best?name="+url.QueryEscape(name), &out); err != nil {
		return nil, err
	}
	return out.Item, nil
}

func (c *client) leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	var out struct {
		Items []Entry `json:"items"`
	}
	if err := c.get(ctx, "/leaderboard?limit="+strconv.Itoa(limit), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal REST client for an external exchange-rate feed.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient constructs a feed client.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("feed: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Quote is one feed observation: one unit of Currency equals Rate units
// of the requested base. Rate stays a string until the ingester parses
// it; the feed controls its own precision.
type Quote struct {
	Currency string `json:"currency"`
	Rate     string `json:"rate"`
	Date     string `json:"date"`
}

type quotesResponse struct {
	Base  string  `json:"base"`
	Rates []Quote `json:"rates"`
}

// Latest fetches the feed's current quotes against the given base
// currency.
func (c *Client) Latest(ctx context.Context, base string) ([]Quote, error) {
	if base == "" {
		return nil, errors.New("feed: empty base currency")
	}
	var resp quotesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/rates/latest?base="+base, nil, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Rates, nil
}

var errNotFound = errors.New("feed: not found")

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("feed: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

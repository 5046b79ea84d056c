// Package feed reads recent entries from the community activity feed.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable wraps every failure to read the feed.
var ErrUnavailable = errors.New("feed: unavailable")

// Account is a feed participant.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Entry is one feed item. Timestamp uniquely identifies it.
type Entry struct {
	Timestamp int64    `json:"ts"`
	Text      string   `json:"text,omitempty"`
	From      *Account `json:"from,omitempty"`
	To        *Account `json:"to,omitempty"`
}

type response struct {
	Entries []Entry `json:"entries"`
}

// Config configures the client.
type Config struct {
	URL     string
	Token   string
	Limit   int
	RPS     float64
	Timeout time.Duration
}

// Client fetches feed entries.
type Client struct {
	http    *http.Client
	url     string
	token   string
	limit   int
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a feed client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 200
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		url:     cfg.URL,
		token:   cfg.Token,
		limit:   cfg.Limit,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Recent returns the most recent entries, newest first.
func (c *Client) Recent(ctx context.Context) ([]Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("%w: bad url: %v", ErrUnavailable, err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrUnavailable, err)
	}
	c.logger.Debug("fetched feed", "entries", len(body.Entries))
	return body.Entries, nil
}

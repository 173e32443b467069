package flaunch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/token"
)

// Client fetches recently launched coins from the Flaunch API
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// NewClient creates a new Flaunch adapter
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.FlaunchBaseURL,
		httpClient: &http.Client{Timeout: cfg.AdapterTimeout},
		pageSize:   cfg.AdapterPageSize,
	}
}

// Name implements sources.Adapter
func (c *Client) Name() token.Source {
	return token.SourceFlaunch
}

// Fetch returns the latest launches, normalized
func (c *Client) Fetch(ctx context.Context) ([]token.Token, error) {
	start := time.Now()
	raw, err := c.fetchRaw(ctx)
	metrics.RecordAPIRequest("flaunch", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return c.normalize(raw), nil
}

func (c *Client) fetchRaw(ctx context.Context) ([]CoinEntry, error) {
	u, err := url.Parse(c.baseURL + "/tokens/recent")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(c.pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out []CoinEntry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func (c *Client) normalize(raw []CoinEntry) []token.Token {
	tokens := make([]token.Token, 0, len(raw))
	for _, entry := range raw {
		addr := token.NormalizeAddress(entry.Address)
		if addr == "" {
			continue
		}

		sourceURL := entry.FlaunchURL
		if sourceURL == "" {
			sourceURL = fmt.Sprintf("https://flaunch.gg/base/coin/%s", addr)
		}

		t := token.Token{
			Address:        addr,
			Name:           entry.Name,
			Symbol:         entry.Ticker,
			Source:         token.SourceFlaunch,
			SourceURL:      sourceURL,
			CreatorAddress: token.NormalizeAddress(entry.CreatorAddr),
			WebsiteURL:     entry.WebsiteURL,
			XURL:           entry.TwitterURL,
			TelegramURL:    entry.TelegramURL,
		}

		if entry.CreatedAt > 0 {
			t.FirstSeenAt = time.Unix(entry.CreatedAt, 0).UTC()
		}

		tokens = append(tokens, t)
	}
	return tokens
}

package clanker

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

// Client fetches recently deployed tokens from the Clanker API
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// NewClient creates a new Clanker adapter
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.ClankerBaseURL,
		httpClient: &http.Client{Timeout: cfg.AdapterTimeout},
		pageSize:   cfg.AdapterPageSize,
	}
}

// Name implements sources.Adapter
func (c *Client) Name() token.Source {
	return token.SourceClanker
}

// Fetch returns the latest deployments, normalized
func (c *Client) Fetch(ctx context.Context) ([]token.Token, error) {
	start := time.Now()
	raw, err := c.fetchRaw(ctx)
	metrics.RecordAPIRequest("clanker", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return c.normalize(raw), nil
}

func (c *Client) fetchRaw(ctx context.Context) (*TokensResponse, error) {
	u, err := url.Parse(c.baseURL + "/tokens")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	q.Set("sort", "desc")
	q.Set("page", "1")
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

	var out TokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// normalize converts the provider shape into canonical tokens. Records
// without a contract address are dropped.
func (c *Client) normalize(raw *TokensResponse) []token.Token {
	tokens := make([]token.Token, 0, len(raw.Data))
	for _, entry := range raw.Data {
		addr := token.NormalizeAddress(entry.ContractAddress)
		if addr == "" {
			continue
		}

		t := token.Token{
			Address:     addr,
			Name:        entry.Name,
			Symbol:      entry.Symbol,
			Source:      token.SourceClanker,
			SourceURL:   fmt.Sprintf("https://www.clanker.world/clanker/%s", addr),
			CreatorFID:  entry.RequestorFID,
			WebsiteURL:  entry.Metadata.WebsiteURL,
			XURL:        entry.Metadata.TwitterURL,
			TelegramURL: entry.Metadata.TelegramURL,
		}

		if entry.CreatedAt != "" {
			if created, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
				t.FirstSeenAt = created.UTC()
			}
		}

		tokens = append(tokens, t)
	}
	return tokens
}

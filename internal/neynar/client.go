package neynar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/ratelimit"
)

// ErrNotFound means the social graph has no account for the lookup key.
// Creator resolution falls through to its next strategy on this error.
var ErrNotFound = errors.New("neynar: user not found")

// ErrNoAPIKey is returned when a lookup is attempted without a configured
// key; the dependent operation is skipped, not crashed.
var ErrNoAPIKey = errors.New("neynar: API key not configured")

const followersPageSize = 100

// Client queries the Neynar social graph API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClient creates a new Neynar client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.NeynarBaseURL,
		apiKey:     cfg.NeynarAPIKey,
		httpClient: &http.Client{Timeout: cfg.AdapterTimeout},
		limiter:    ratelimit.New(cfg.NeynarRPS),
	}
}

// Enabled reports whether the client has credentials
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// UserByFID fetches a single account by numeric id
func (c *Client) UserByFID(ctx context.Context, fid int64) (*User, error) {
	var out bulkUsersResponse
	params := url.Values{"fids": {strconv.FormatInt(fid, 10)}}
	if err := c.get(ctx, "/farcaster/user/bulk", params, &out); err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return nil, ErrNotFound
	}
	return &out.Users[0], nil
}

// UserByUsername fetches a single account by handle
func (c *Client) UserByUsername(ctx context.Context, username string) (*User, error) {
	var out userResponse
	params := url.Values{"username": {username}}
	if err := c.get(ctx, "/farcaster/user/by_username", params, &out); err != nil {
		return nil, err
	}
	if out.User.FID == 0 {
		return nil, ErrNotFound
	}
	return &out.User, nil
}

// UserByAddress finds the account verified against an on-chain address
func (c *Client) UserByAddress(ctx context.Context, address string) (*User, error) {
	var out bulkByAddressResponse
	params := url.Values{"addresses": {address}}
	if err := c.get(ctx, "/farcaster/user/bulk-by-address", params, &out); err != nil {
		return nil, err
	}
	for _, users := range out {
		if len(users) > 0 {
			return &users[0], nil
		}
	}
	return nil, ErrNotFound
}

// SampleFollowers pages through an account's followers collecting up to
// sampleSize of them with their quality scores and power badges
func (c *Client) SampleFollowers(ctx context.Context, fid int64, sampleSize int) (*FollowerSample, error) {
	sample := &FollowerSample{}
	cursor := ""

	for sample.TotalCount < sampleSize {
		limit := followersPageSize
		if remaining := sampleSize - sample.TotalCount; remaining < limit {
			limit = remaining
		}

		params := url.Values{
			"fid":   {strconv.FormatInt(fid, 10)},
			"limit": {strconv.Itoa(limit)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page followersResponse
		if err := c.get(ctx, "/farcaster/followers", params, &page); err != nil {
			return nil, err
		}
		if len(page.Users) == 0 {
			break
		}

		for _, f := range page.Users {
			sample.TotalCount++
			if f.User.PowerBadge {
				sample.PowerCount++
			}
			if f.User.Score != nil {
				sample.Scores = append(sample.Scores, *f.User.Score)
			}
		}

		cursor = page.Next.Cursor
		if cursor == "" {
			break
		}
	}

	return sample, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordAPIRequest("neynar", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

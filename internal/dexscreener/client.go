package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/ratelimit"
)

// ErrNoPair means the token has no indexed trading pair yet. Enrichment
// treats this as "fields absent", not as zero values.
var ErrNoPair = errors.New("dexscreener: no trading pair for token")

// Pair is one trading pair from the token lookup
type Pair struct {
	ChainID   string  `json:"chainId"`
	PriceUSD  string  `json:"priceUsd"`
	FDV       float64 `json:"fdv"`
	MarketCap float64 `json:"marketCap"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
}

type tokenResponse struct {
	Pairs []Pair `json:"pairs"`
}

// Snapshot is the market state extracted from the dominant pair
type Snapshot struct {
	PriceUSD     float64
	MarketCapUSD float64
	LiquidityUSD float64
	Volume24hUSD float64
}

// Client queries the DexScreener public API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClient creates a new DexScreener client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.DexScreenerBaseURL,
		httpClient: &http.Client{Timeout: cfg.AdapterTimeout},
		limiter:    ratelimit.NewBurst(cfg.DexScreenerRPS, cfg.DexScreenerRPS*2),
	}
}

// TokenSnapshot fetches market stats for a token address, using the pair
// with the deepest liquidity when several exist
func (c *Client) TokenSnapshot(ctx context.Context, address string) (*Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + "/latest/dex/tokens/" + address

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordAPIRequest("dexscreener", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(out.Pairs) == 0 {
		return nil, ErrNoPair
	}

	best := out.Pairs[0]
	for _, p := range out.Pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	snap := &Snapshot{
		MarketCapUSD: best.MarketCap,
		LiquidityUSD: best.Liquidity.USD,
		Volume24hUSD: best.Volume.H24,
	}
	if snap.MarketCapUSD == 0 {
		snap.MarketCapUSD = best.FDV
	}
	if best.PriceUSD != "" {
		if price, err := strconv.ParseFloat(best.PriceUSD, 64); err == nil {
			snap.PriceUSD = price
		}
	}
	return snap, nil
}

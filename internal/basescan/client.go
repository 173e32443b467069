package basescan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/ratelimit"
	"github.com/tom1k77/hatchr/internal/token"
)

// ErrNoAPIKey is returned when the explorer lookup is attempted without a
// configured key; callers skip creator resolution rather than failing a run.
var ErrNoAPIKey = errors.New("basescan: API key not configured")

type creationResult struct {
	ContractAddress string `json:"contractAddress"`
	ContractCreator string `json:"contractCreator"`
	TxHash          string `json:"txHash"`
}

type creationResponse struct {
	Status  string           `json:"status"` // "1" ok, "0" error
	Message string           `json:"message"`
	Result  []creationResult `json:"result"`
}

// Client resolves contract metadata via the Basescan explorer API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClient creates a new Basescan client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.BasescanBaseURL,
		apiKey:     cfg.BasescanAPIKey,
		httpClient: &http.Client{Timeout: cfg.AdapterTimeout},
		limiter:    ratelimit.New(cfg.BasescanRPS),
	}
}

// ContractCreator returns the EOA that deployed a contract
func (c *Client) ContractCreator(ctx context.Context, contractAddress string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	q.Set("module", "contract")
	q.Set("action", "getcontractcreation")
	q.Set("contractaddresses", contractAddress)
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordAPIRequest("basescan", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out creationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if out.Status != "1" || len(out.Result) == 0 {
		return "", fmt.Errorf("no creation record for %s: %s", contractAddress, out.Message)
	}

	return token.NormalizeAddress(out.Result[0].ContractCreator), nil
}

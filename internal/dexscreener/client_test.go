package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tom1k77/hatchr/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.Config{
		DexScreenerBaseURL: baseURL,
		AdapterTimeout:     5 * time.Second,
		DexScreenerRPS:     100,
	})
}

func TestTokenSnapshotPicksDeepestPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[
			{"chainId":"base","priceUsd":"0.01","liquidity":{"usd":5000},"volume":{"h24":200},"marketCap":100000},
			{"chainId":"base","priceUsd":"0.02","liquidity":{"usd":40000},"volume":{"h24":1500},"marketCap":2000000}
		]}`)
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).TokenSnapshot(context.Background(), "0xaaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.PriceUSD != 0.02 {
		t.Errorf("expected price from deepest pair, got %f", snap.PriceUSD)
	}
	if snap.LiquidityUSD != 40000 {
		t.Errorf("expected liquidity 40000, got %f", snap.LiquidityUSD)
	}
	if snap.Volume24hUSD != 1500 {
		t.Errorf("expected volume 1500, got %f", snap.Volume24hUSD)
	}
}

func TestTokenSnapshotFDVFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[{"priceUsd":"0.01","fdv":500000,"liquidity":{"usd":5000},"volume":{"h24":200}}]}`)
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).TokenSnapshot(context.Background(), "0xaaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.MarketCapUSD != 500000 {
		t.Errorf("expected FDV fallback, got %f", snap.MarketCapUSD)
	}
}

func TestTokenSnapshotNoPair(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty list", `{"pairs":[]}`},
		{"null list", `{"pairs":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).TokenSnapshot(context.Background(), "0xaaa")
			if !errors.Is(err, ErrNoPair) {
				t.Errorf("expected ErrNoPair, got %v", err)
			}
		})
	}
}

func TestTokenSnapshotHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).TokenSnapshot(context.Background(), "0xaaa")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if errors.Is(err, ErrNoPair) {
		t.Error("HTTP failure must not look like a missing pair")
	}
}

package token

import (
	"strings"
	"time"
)

// Source identifies the launch platform a token was discovered on
type Source string

const (
	SourceClanker Source = "clanker"
	SourceFlaunch Source = "flaunch"
)

// Token is the canonical record for a launched token. Address is the primary
// key across the whole pipeline; every other field may be filled in
// progressively by merge and enrichment.
type Token struct {
	Address     string // lower-cased hex
	Name        string
	Symbol      string
	Source      Source
	SourceURL   string
	FirstSeenAt time.Time // zero = unknown

	// Social links (filled by normalization or scrape)
	WebsiteURL   string
	XURL         string
	FarcasterURL string
	TelegramURL  string

	// Creator identity (filled by enrichment)
	CreatorAddress  string
	CreatorFID      int64 // 0 = unresolved
	CreatorUsername string

	// Market snapshot (filled by enrichment; nil = no pair / lookup failed)
	PriceUSD     *float64
	MarketCapUSD *float64
	LiquidityUSD *float64
	Volume24hUSD *float64
}

// NormalizeAddress lower-cases and trims a hex address
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// HasCreatorIdentity reports whether a social identity has been resolved
func (t *Token) HasCreatorIdentity() bool {
	return t.CreatorFID > 0 || t.CreatorUsername != ""
}

package enrich

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/basescan"
	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/dexscreener"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/neynar"
	"github.com/tom1k77/hatchr/internal/token"
	"golang.org/x/sync/errgroup"
)

// MarketProvider supplies point-in-time market stats per token address
type MarketProvider interface {
	TokenSnapshot(ctx context.Context, address string) (*dexscreener.Snapshot, error)
}

// CreatorLookup resolves the deployer address of a contract
type CreatorLookup interface {
	ContractCreator(ctx context.Context, contractAddress string) (string, error)
}

// SocialGraph resolves creator identities
type SocialGraph interface {
	UserByFID(ctx context.Context, fid int64) (*neynar.User, error)
	UserByUsername(ctx context.Context, username string) (*neynar.User, error)
	UserByAddress(ctx context.Context, address string) (*neynar.User, error)
}

// Enricher augments merged tokens with social links, market stats, and
// creator identity. Every sub-step is independently fallible: a failure
// yields no patch for that field set and is never allowed to abort the
// run or another token's enrichment.
type Enricher struct {
	scraper *http.Client
	market  MarketProvider
	creator CreatorLookup
	social  SocialGraph
	workers int
	log     *logrus.Logger
}

// New creates an enrichment stage
func New(cfg *config.Config, market MarketProvider, creator CreatorLookup, social SocialGraph, log *logrus.Logger) *Enricher {
	return &Enricher{
		scraper: &http.Client{Timeout: cfg.AdapterTimeout},
		market:  market,
		creator: creator,
		social:  social,
		workers: cfg.EnrichWorkers,
		log:     log,
	}
}

// Enrich runs all three augmentations for each token with bounded
// concurrency across tokens. Within one token the steps are sequential
// because creator resolution consumes scrape results.
func (e *Enricher) Enrich(ctx context.Context, tokens []token.Token) []token.Token {
	start := time.Now()
	defer func() {
		metrics.EnrichmentDuration.Observe(time.Since(start).Seconds())
	}()

	out := make([]token.Token, len(tokens))
	copy(out, tokens)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range out {
		i := i
		g.Go(func() error {
			e.enrichOne(gctx, &out[i])
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Enricher) enrichOne(ctx context.Context, t *token.Token) {
	e.enrichSocial(ctx, t)
	e.enrichMarket(ctx, t)
	e.enrichCreator(ctx, t)
}

// enrichSocial scrapes the listing page for social links. The patch is
// additive only: known values are never overwritten or removed.
func (e *Enricher) enrichSocial(ctx context.Context, t *token.Token) {
	if t.SourceURL == "" {
		return
	}
	// Nothing left to fill
	if t.WebsiteURL != "" && t.XURL != "" && t.FarcasterURL != "" && t.TelegramURL != "" {
		return
	}

	html, err := fetchPage(ctx, e.scraper, t.SourceURL)
	if err != nil {
		metrics.EnrichmentFailures.WithLabelValues("scrape").Inc()
		e.log.WithError(err).WithField("token", t.Address).Debug("Social scrape failed")
		return
	}

	links := ExtractSocialLinks(html)
	if t.WebsiteURL == "" {
		t.WebsiteURL = links.WebsiteURL
	}
	if t.XURL == "" {
		t.XURL = links.XURL
	}
	if t.FarcasterURL == "" {
		t.FarcasterURL = links.FarcasterURL
	}
	if t.TelegramURL == "" {
		t.TelegramURL = links.TelegramURL
	}
}

// enrichMarket attaches the current market snapshot. No pair and lookup
// failure both leave the fields absent rather than zero.
func (e *Enricher) enrichMarket(ctx context.Context, t *token.Token) {
	snap, err := e.market.TokenSnapshot(ctx, t.Address)
	if err != nil {
		if !errors.Is(err, dexscreener.ErrNoPair) {
			metrics.EnrichmentFailures.WithLabelValues("market").Inc()
			e.log.WithError(err).WithField("token", t.Address).Warn("Market enrichment failed")
		}
		return
	}

	t.PriceUSD = &snap.PriceUSD
	t.MarketCapUSD = &snap.MarketCapUSD
	t.LiquidityUSD = &snap.LiquidityUSD
	t.Volume24hUSD = &snap.Volume24hUSD
}

// enrichCreator resolves the creator's social identity. Resolution order
// is fixed: numeric profile id embedded in a scraped Farcaster URL, then
// the username embedded there, then a lookup by deployer address. The
// first step that succeeds wins.
func (e *Enricher) enrichCreator(ctx context.Context, t *token.Token) {
	// Already resolved on a previous pass or supplied by the platform
	if t.CreatorFID > 0 && t.CreatorUsername != "" {
		return
	}

	// A known FID only needs its username filled in
	if t.CreatorFID > 0 {
		if user, err := e.social.UserByFID(ctx, t.CreatorFID); err == nil {
			t.CreatorUsername = user.Username
		}
		return
	}

	// (a) explicit numeric profile id in the scraped Farcaster URL
	if fid := FarcasterProfileID(t.FarcasterURL); fid > 0 {
		t.CreatorFID = fid
		if user, err := e.social.UserByFID(ctx, fid); err == nil {
			t.CreatorUsername = user.Username
		}
		return
	}

	// (b) username embedded in the scraped Farcaster URL
	if handle := FarcasterHandle(t.FarcasterURL); handle != "" {
		user, err := e.social.UserByUsername(ctx, handle)
		if err == nil {
			t.CreatorFID = user.FID
			t.CreatorUsername = user.Username
			return
		}
		if !errors.Is(err, neynar.ErrNotFound) && !errors.Is(err, neynar.ErrNoAPIKey) {
			metrics.EnrichmentFailures.WithLabelValues("creator").Inc()
			e.log.WithError(err).WithField("token", t.Address).Debug("Username resolution failed")
		}
	}

	// (c) lookup by on-chain creator address
	if t.CreatorAddress == "" {
		addr, err := e.creator.ContractCreator(ctx, t.Address)
		if err != nil {
			if !errors.Is(err, basescan.ErrNoAPIKey) {
				metrics.EnrichmentFailures.WithLabelValues("creator").Inc()
				e.log.WithError(err).WithField("token", t.Address).Debug("Contract creator lookup failed")
			}
			return
		}
		t.CreatorAddress = addr
	}

	user, err := e.social.UserByAddress(ctx, t.CreatorAddress)
	if err != nil {
		if !errors.Is(err, neynar.ErrNotFound) && !errors.Is(err, neynar.ErrNoAPIKey) {
			metrics.EnrichmentFailures.WithLabelValues("creator").Inc()
			e.log.WithError(err).WithField("token", t.Address).Debug("Address resolution failed")
		}
		return
	}
	t.CreatorFID = user.FID
	t.CreatorUsername = user.Username
}

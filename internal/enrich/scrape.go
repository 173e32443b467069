package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// SocialLinks is the additive patch produced by scraping a token's listing
// page. Empty fields mean "nothing found", never "remove".
type SocialLinks struct {
	WebsiteURL   string
	XURL         string
	FarcasterURL string
	TelegramURL  string
}

var (
	xLinkRe         = regexp.MustCompile(`https?://(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9_]{1,15}`)
	farcasterLinkRe = regexp.MustCompile(`https?://(?:www\.)?(?:warpcast\.com|farcaster\.xyz)/(?:~/profiles/\d+|[A-Za-z0-9][A-Za-z0-9.-]{0,30})`)
	telegramLinkRe  = regexp.MustCompile(`https?://t\.me/[A-Za-z0-9_+]{3,64}`)
	hrefRe          = regexp.MustCompile(`https?://[^\s"'<>)]+`)

	farcasterProfileIDRe = regexp.MustCompile(`/~/profiles/(\d+)`)
	farcasterHandleRe    = regexp.MustCompile(`(?:warpcast\.com|farcaster\.xyz)/([A-Za-z0-9][A-Za-z0-9.-]{0,30})$`)
)

// Hosts that are part of the token-listing plumbing rather than a project's
// own site. Links to these never count as the project website.
var aggregatorHosts = map[string]bool{
	"clanker.world":      true,
	"flaunch.gg":         true,
	"dexscreener.com":    true,
	"dextools.io":        true,
	"basescan.org":       true,
	"geckoterminal.com":  true,
	"coingecko.com":      true,
	"uniswap.org":        true,
	"app.uniswap.org":    true,
	"zora.co":            true,
	"warpcast.com":       true,
	"farcaster.xyz":      true,
	"x.com":              true,
	"twitter.com":        true,
	"t.me":               true,
	"telegram.org":       true,
	"discord.gg":         true,
	"discord.com":        true,
	"opensea.io":         true,
	"etherscan.io":       true,
	"ipfs.io":            true,
}

// ExtractSocialLinks pulls the first matching social and website links out
// of raw listing-page HTML
func ExtractSocialLinks(html string) SocialLinks {
	links := SocialLinks{
		XURL:         xLinkRe.FindString(html),
		FarcasterURL: farcasterLinkRe.FindString(html),
		TelegramURL:  telegramLinkRe.FindString(html),
	}

	for _, raw := range hrefRe.FindAllString(html, -1) {
		if isProjectWebsite(raw) {
			links.WebsiteURL = raw
			break
		}
	}

	return links
}

// isProjectWebsite filters out aggregator, social, and asset links
func isProjectWebsite(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	if aggregatorHosts[host] {
		return false
	}
	// Static assets and API paths are not a project site
	lower := strings.ToLower(u.Path)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".svg", ".gif", ".webp", ".css", ".js", ".ico", ".woff", ".woff2"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// FarcasterProfileID extracts the numeric profile id embedded in a
// Farcaster profile URL, 0 if the URL carries a handle instead
func FarcasterProfileID(farcasterURL string) int64 {
	m := farcasterProfileIDRe.FindStringSubmatch(farcasterURL)
	if m == nil {
		return 0
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// FarcasterHandle extracts the username from a Farcaster profile URL,
// "" when the URL carries a numeric profile id
func FarcasterHandle(farcasterURL string) string {
	if FarcasterProfileID(farcasterURL) != 0 {
		return ""
	}
	m := farcasterHandleRe.FindStringSubmatch(strings.TrimSuffix(farcasterURL, "/"))
	if m == nil {
		return ""
	}
	return m[1]
}

// fetchPage downloads a listing page for scraping, capped to 512KiB
func fetchPage(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "hatchr/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

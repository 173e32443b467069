package token

// Merge folds normalized adapter outputs into one Token per address.
// Precedence is "first non-empty value wins" in input order, except
// FirstSeenAt which always resolves to the earliest non-zero timestamp.
// Merging an already-merged set with more records (or with nothing) is
// idempotent, so the pipeline can re-run it safely.
func Merge(lists ...[]Token) []Token {
	byAddr := make(map[string]*Token)
	var order []string

	for _, list := range lists {
		for _, t := range list {
			addr := NormalizeAddress(t.Address)
			if addr == "" {
				continue
			}
			t.Address = addr

			existing, ok := byAddr[addr]
			if !ok {
				copy := t
				byAddr[addr] = &copy
				order = append(order, addr)
				continue
			}
			mergeInto(existing, &t)
		}
	}

	out := make([]Token, 0, len(order))
	for _, addr := range order {
		out = append(out, *byAddr[addr])
	}
	return out
}

// mergeInto fills empty fields of dst from src. dst holds precedence for
// every field except FirstSeenAt, where the earlier non-zero value wins
// (equal timestamps keep dst).
func mergeInto(dst, src *Token) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Symbol == "" {
		dst.Symbol = src.Symbol
	}
	if dst.Source == "" {
		dst.Source = src.Source
	}
	if dst.SourceURL == "" {
		dst.SourceURL = src.SourceURL
	}
	if dst.WebsiteURL == "" {
		dst.WebsiteURL = src.WebsiteURL
	}
	if dst.XURL == "" {
		dst.XURL = src.XURL
	}
	if dst.FarcasterURL == "" {
		dst.FarcasterURL = src.FarcasterURL
	}
	if dst.TelegramURL == "" {
		dst.TelegramURL = src.TelegramURL
	}
	if dst.CreatorAddress == "" {
		dst.CreatorAddress = src.CreatorAddress
	}
	if dst.CreatorFID == 0 {
		dst.CreatorFID = src.CreatorFID
	}
	if dst.CreatorUsername == "" {
		dst.CreatorUsername = src.CreatorUsername
	}
	if dst.PriceUSD == nil {
		dst.PriceUSD = src.PriceUSD
	}
	if dst.MarketCapUSD == nil {
		dst.MarketCapUSD = src.MarketCapUSD
	}
	if dst.LiquidityUSD == nil {
		dst.LiquidityUSD = src.LiquidityUSD
	}
	if dst.Volume24hUSD == nil {
		dst.Volume24hUSD = src.Volume24hUSD
	}

	// Earliest known creation time wins; a zero candidate never displaces
	// a non-zero one.
	if dst.FirstSeenAt.IsZero() {
		dst.FirstSeenAt = src.FirstSeenAt
	} else if !src.FirstSeenAt.IsZero() && src.FirstSeenAt.Before(dst.FirstSeenAt) {
		dst.FirstSeenAt = src.FirstSeenAt
	}
}

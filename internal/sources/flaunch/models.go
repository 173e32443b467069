package flaunch

// CoinEntry is one launched coin in the Flaunch recent listing.
// Flaunch returns a bare JSON array, not a wrapped object.
type CoinEntry struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	CreatedAt   int64  `json:"createdAt"` // unix seconds
	CreatorAddr string `json:"creatorAddress"`
	WebsiteURL  string `json:"websiteUrl"`
	TwitterURL  string `json:"twitterUrl"`
	TelegramURL string `json:"telegramUrl"`
	FlaunchURL  string `json:"url"`
}

package clanker

// TokenEntry is one deployed token in the Clanker listing response
type TokenEntry struct {
	ContractAddress string `json:"contract_address"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	CreatedAt       string `json:"created_at"` // RFC3339
	TxHash          string `json:"tx_hash"`
	RequestorFID    int64  `json:"requestor_fid"`
	CastHash        string `json:"cast_hash"`
	Metadata        struct {
		WebsiteURL  string `json:"website_url"`
		TwitterURL  string `json:"twitter_url"`
		TelegramURL string `json:"telegram_url"`
	} `json:"metadata"`
}

// TokensResponse wraps the paginated listing endpoint
type TokensResponse struct {
	Data    []TokenEntry `json:"data"`
	HasMore bool         `json:"hasMore"`
	Total   int          `json:"total"`
}

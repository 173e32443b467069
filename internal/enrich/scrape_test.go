package enrich

import "testing"

func TestExtractSocialLinks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want SocialLinks
	}{
		{
			name: "all link kinds present",
			html: `<a href="https://x.com/hatchcoin">X</a>
				<a href="https://warpcast.com/~/profiles/4212">Farcaster</a>
				<a href="https://t.me/hatchcoin">Telegram</a>
				<a href="https://hatch.example/about">Website</a>`,
			want: SocialLinks{
				WebsiteURL:   "https://hatch.example/about",
				XURL:         "https://x.com/hatchcoin",
				FarcasterURL: "https://warpcast.com/~/profiles/4212",
				TelegramURL:  "https://t.me/hatchcoin",
			},
		},
		{
			name: "twitter.com treated as x",
			html: `<a href="https://twitter.com/hatchcoin">follow</a>`,
			want: SocialLinks{XURL: "https://twitter.com/hatchcoin"},
		},
		{
			name: "farcaster handle url",
			html: `see https://warpcast.com/builder for updates`,
			want: SocialLinks{FarcasterURL: "https://warpcast.com/builder"},
		},
		{
			name: "aggregator links are not the project website",
			html: `<a href="https://dexscreener.com/base/0xabc">chart</a>
				<a href="https://basescan.org/token/0xabc">scan</a>`,
			want: SocialLinks{},
		},
		{
			name: "asset links are not the project website",
			html: `<img src="https://cdn.example/logo.png">`,
			want: SocialLinks{},
		},
		{
			name: "empty page",
			html: "",
			want: SocialLinks{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSocialLinks(tt.html)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFarcasterProfileID(t *testing.T) {
	tests := []struct {
		url  string
		want int64
	}{
		{"https://warpcast.com/~/profiles/4212", 4212},
		{"https://farcaster.xyz/~/profiles/1", 1},
		{"https://warpcast.com/builder", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := FarcasterProfileID(tt.url); got != tt.want {
			t.Errorf("FarcasterProfileID(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestFarcasterHandle(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://warpcast.com/builder", "builder"},
		{"https://warpcast.com/builder/", "builder"},
		{"https://farcaster.xyz/vitalik.eth", "vitalik.eth"},
		{"https://warpcast.com/~/profiles/4212", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FarcasterHandle(tt.url); got != tt.want {
			t.Errorf("FarcasterHandle(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

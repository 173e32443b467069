package neynar

// User is a Farcaster account as returned by the Neynar API
type User struct {
	FID           int64    `json:"fid"`
	Username      string   `json:"username"`
	DisplayName   string   `json:"display_name"`
	FollowerCount int      `json:"follower_count"`
	PowerBadge    bool     `json:"power_badge"`
	Score         *float64 `json:"score"` // Neynar user quality score, [0,1]; nil when unscored
}

// Follower is one entry in a follower-list page
type Follower struct {
	User User `json:"user"`
}

type userResponse struct {
	User User `json:"user"`
}

type bulkUsersResponse struct {
	Users []User `json:"users"`
}

type bulkByAddressResponse map[string][]User

type followersResponse struct {
	Users []Follower `json:"users"`
	Next  struct {
		Cursor string `json:"cursor"`
	} `json:"next"`
}

// FollowerSample is what the reputation scorer consumes. Scores holds only
// followers that carried a quality score; TotalCount and PowerCount cover
// the full sample including unscored members.
type FollowerSample struct {
	Scores     []float64
	TotalCount int
	PowerCount int
}

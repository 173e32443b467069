package score

import (
	"math"

	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/neynar"
)

// FollowersQuality aggregates a follower sample into a single [0,1] value.
// The mean covers only followers that carried a score; the power-badge
// ratio covers the full sample including unscored members. Returns nil for
// an empty sample.
func FollowersQuality(cfg config.Scoring, sample *neynar.FollowerSample) *float64 {
	if sample == nil || sample.TotalCount == 0 || len(sample.Scores) == 0 {
		return nil
	}

	var sum float64
	for _, s := range sample.Scores {
		sum += s
	}
	avg := sum / float64(len(sample.Scores))
	powerRatio := float64(sample.PowerCount) / float64(sample.TotalCount)

	q := clamp01(cfg.AvgScoreWeight*avg + cfg.PowerBadgeWeight*powerRatio)
	return &q
}

// Composite combines the creator score and followers quality into the
// hatchr score. When only one input is available the composite degrades to
// that input alone; it is nil only when both are missing.
func Composite(cfg config.Scoring, creatorScore, followersQuality *float64) *float64 {
	switch {
	case creatorScore != nil && followersQuality != nil:
		s := clamp01(cfg.CreatorWeight**creatorScore + cfg.FollowersWeight**followersQuality)
		return &s
	case creatorScore != nil:
		s := clamp01(*creatorScore)
		return &s
	case followersQuality != nil:
		s := clamp01(*followersQuality)
		return &s
	default:
		return nil
	}
}

// SizeAware weights a mean follower score by audience size so a 0.9 mean
// over ten followers does not outrank a 0.8 mean over a thousand
func SizeAware(cfg config.Scoring, meanFollowerScore float64, followerCount int) float64 {
	if followerCount < 0 {
		followerCount = 0
	}
	sizeFactor := clamp01(math.Log10(float64(followerCount)+1) / math.Log10(float64(cfg.SizeAwareMaxRef)+1))
	return clamp01(meanFollowerScore * (0.5 + 0.5*sizeFactor))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

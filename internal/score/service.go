package score

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/neynar"
	"github.com/tom1k77/hatchr/internal/storage"
)

// SocialGraph is the slice of the Neynar client the scorer needs
type SocialGraph interface {
	UserByFID(ctx context.Context, fid int64) (*neynar.User, error)
	UserByUsername(ctx context.Context, username string) (*neynar.User, error)
	SampleFollowers(ctx context.Context, fid int64, sampleSize int) (*neynar.FollowerSample, error)
}

// MentionCounter counts stored social signals referencing a token
type MentionCounter interface {
	CountSignalMentions(ctx context.Context, q storage.MentionQuery) (int64, error)
}

// Request identifies the creator (fid or username, fid preferred) plus
// optional token context used for the mention counter
type Request struct {
	FID      int64
	Username string

	TokenAddress   string
	TokenName      string
	TokenSymbol    string
	TokenCreatedAt time.Time // zero = count mentions from all time
}

// FollowersAnalytics describes the sample behind the quality aggregate
type FollowersAnalytics struct {
	SampleSize      int     `json:"sampleSize"`
	ScoredCount     int     `json:"scoredCount"`
	AvgScore        float64 `json:"avgFollowerScore"`
	PowerBadgeRatio float64 `json:"powerBadgeRatio"`
}

// CreatorContext is the resolved profile behind the score
type CreatorContext struct {
	FID           int64  `json:"fid"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName"`
	FollowerCount int    `json:"followerCount"`
	PowerBadge    bool   `json:"powerBadge"`
}

// Response is the full score query answer. Score fields are nil when the
// corresponding input could not be obtained.
type Response struct {
	CreatorScore     *float64            `json:"creatorScore"`
	FollowersQuality *float64            `json:"followersQuality"`
	HatchrScore      *float64            `json:"hatchrScore"`
	FollowerCount    int                 `json:"followerCount"`
	Analytics        *FollowersAnalytics `json:"followersAnalytics,omitempty"`
	TokenMentions    int64               `json:"tokenMentions"`
	Creator          *CreatorContext     `json:"creatorContext,omitempty"`
	ScoringVersion   string              `json:"scoringVersion"`
}

// Service answers score queries and computes the composite for the alert
// scan. Follower-sample failures degrade to a creator-only composite.
type Service struct {
	cfg      config.Scoring
	social   SocialGraph
	mentions MentionCounter
	log      *logrus.Logger
}

// NewService creates a scorer service
func NewService(cfg config.Scoring, social SocialGraph, mentions MentionCounter, log *logrus.Logger) *Service {
	return &Service{cfg: cfg, social: social, mentions: mentions, log: log}
}

// Query resolves the creator and computes the full score response
func (s *Service) Query(ctx context.Context, req Request) (*Response, error) {
	user, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		CreatorScore:   user.Score,
		FollowerCount:  user.FollowerCount,
		ScoringVersion: s.cfg.Version,
		Creator: &CreatorContext{
			FID:           user.FID,
			Username:      user.Username,
			DisplayName:   user.DisplayName,
			FollowerCount: user.FollowerCount,
			PowerBadge:    user.PowerBadge,
		},
	}

	sample, err := s.social.SampleFollowers(ctx, user.FID, s.cfg.FollowerSampleSize)
	if err != nil {
		// Degrade to creator-only scoring
		s.log.WithError(err).WithField("fid", user.FID).Warn("Follower sampling failed")
	} else if sample.TotalCount > 0 {
		resp.FollowersQuality = FollowersQuality(s.cfg, sample)
		analytics := &FollowersAnalytics{
			SampleSize:      sample.TotalCount,
			ScoredCount:     len(sample.Scores),
			PowerBadgeRatio: float64(sample.PowerCount) / float64(sample.TotalCount),
		}
		if len(sample.Scores) > 0 {
			var sum float64
			for _, v := range sample.Scores {
				sum += v
			}
			analytics.AvgScore = sum / float64(len(sample.Scores))
		}
		resp.Analytics = analytics
	}

	resp.HatchrScore = Composite(s.cfg, resp.CreatorScore, resp.FollowersQuality)
	if resp.HatchrScore != nil {
		metrics.RecordHatchrScore(*resp.HatchrScore)
	}

	if s.mentions != nil && (req.TokenSymbol != "" || req.TokenAddress != "" || req.TokenName != "") {
		q := storage.MentionQuery{
			Symbol:  req.TokenSymbol,
			Address: req.TokenAddress,
			Name:    req.TokenName,
		}
		if !req.TokenCreatedAt.IsZero() {
			q.Since = req.TokenCreatedAt.Unix()
		}
		count, err := s.mentions.CountSignalMentions(ctx, q)
		if err != nil {
			s.log.WithError(err).Warn("Mention count failed")
		} else {
			resp.TokenMentions = count
		}
	}

	return resp, nil
}

// CompositeForCreator computes just the hatchr score for a creator
// identified by fid or username, used by the alert scan's score gate
func (s *Service) CompositeForCreator(ctx context.Context, fid int64, username string) (*float64, error) {
	user, err := s.resolveUser(ctx, Request{FID: fid, Username: username})
	if err != nil {
		return nil, fmt.Errorf("resolve creator: %w", err)
	}

	var followersQuality *float64
	sample, err := s.social.SampleFollowers(ctx, user.FID, s.cfg.FollowerSampleSize)
	if err != nil {
		s.log.WithError(err).WithField("fid", user.FID).Warn("Follower sampling failed, scoring on creator alone")
	} else {
		followersQuality = FollowersQuality(s.cfg, sample)
	}

	composite := Composite(s.cfg, user.Score, followersQuality)
	if composite != nil {
		metrics.RecordHatchrScore(*composite)
	}
	return composite, nil
}

func (s *Service) resolveUser(ctx context.Context, req Request) (*neynar.User, error) {
	if req.FID > 0 {
		user, err := s.social.UserByFID(ctx, req.FID)
		if err != nil {
			return nil, fmt.Errorf("user by fid %d: %w", req.FID, err)
		}
		return user, nil
	}
	if req.Username != "" {
		user, err := s.social.UserByUsername(ctx, req.Username)
		if err != nil {
			return nil, fmt.Errorf("user by username %q: %w", req.Username, err)
		}
		return user, nil
	}
	return nil, fmt.Errorf("either fid or username is required")
}

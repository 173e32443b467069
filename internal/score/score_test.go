package score

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/neynar"
	"github.com/tom1k77/hatchr/internal/storage"
)

func fp(v float64) *float64 { return &v }

func TestFollowersQuality(t *testing.T) {
	cfg := config.DefaultScoring()

	tests := []struct {
		name   string
		sample *neynar.FollowerSample
		want   *float64
	}{
		{
			name:   "nil sample",
			sample: nil,
			want:   nil,
		},
		{
			name:   "empty sample",
			sample: &neynar.FollowerSample{},
			want:   nil,
		},
		{
			name:   "no scored followers",
			sample: &neynar.FollowerSample{TotalCount: 10, PowerCount: 3},
			want:   nil,
		},
		{
			name: "unscored followers excluded from mean",
			sample: &neynar.FollowerSample{
				Scores:     []float64{0.8, 0.6},
				TotalCount: 4,
				PowerCount: 1,
			},
			// 0.85*0.7 + 0.15*0.25
			want: fp(0.6325),
		},
		{
			name: "all power badges",
			sample: &neynar.FollowerSample{
				Scores:     []float64{1.0},
				TotalCount: 1,
				PowerCount: 1,
			},
			want: fp(1.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FollowersQuality(cfg, tt.sample)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestComposite(t *testing.T) {
	cfg := config.DefaultScoring()

	tests := []struct {
		name             string
		creatorScore     *float64
		followersQuality *float64
		want             *float64
	}{
		{
			name:             "both inputs",
			creatorScore:     fp(0.9),
			followersQuality: fp(0.5),
			// 0.6*0.9 + 0.4*0.5
			want: fp(0.74),
		},
		{
			name:         "creator only degrades to creator score",
			creatorScore: fp(0.8),
			want:         fp(0.8),
		},
		{
			name:             "followers only degrades to followers quality",
			followersQuality: fp(0.55),
			want:             fp(0.55),
		},
		{
			name: "neither input",
			want: nil,
		},
		{
			name:             "clamped to one",
			creatorScore:     fp(1.4),
			followersQuality: fp(1.2),
			want:             fp(1.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Composite(cfg, tt.creatorScore, tt.followersQuality)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
			assert.GreaterOrEqual(t, *got, 0.0)
			assert.LessOrEqual(t, *got, 1.0)
		})
	}
}

func TestSizeAware(t *testing.T) {
	cfg := config.DefaultScoring()

	// A high mean over a tiny audience must not outrank a slightly lower
	// mean over a large one.
	small := SizeAware(cfg, 0.9, 10)
	large := SizeAware(cfg, 0.8, 1000)
	assert.Less(t, small, large)

	// At the reference size the multiplier is 1.
	assert.InDelta(t, 0.8, SizeAware(cfg, 0.8, cfg.SizeAwareMaxRef), 1e-9)

	// Zero followers halves the mean.
	assert.InDelta(t, 0.45, SizeAware(cfg, 0.9, 0), 1e-9)

	assert.InDelta(t, 0.45, SizeAware(cfg, 0.9, -5), 1e-9)
}

type fakeSocial struct {
	user      *neynar.User
	userErr   error
	sample    *neynar.FollowerSample
	sampleErr error
}

func (f *fakeSocial) UserByFID(ctx context.Context, fid int64) (*neynar.User, error) {
	return f.user, f.userErr
}

func (f *fakeSocial) UserByUsername(ctx context.Context, username string) (*neynar.User, error) {
	return f.user, f.userErr
}

func (f *fakeSocial) SampleFollowers(ctx context.Context, fid int64, sampleSize int) (*neynar.FollowerSample, error) {
	return f.sample, f.sampleErr
}

type fakeMentions struct {
	count int64
	err   error
	got   storage.MentionQuery
}

func (f *fakeMentions) CountSignalMentions(ctx context.Context, q storage.MentionQuery) (int64, error) {
	f.got = q
	return f.count, f.err
}

func newTestService(social SocialGraph, mentions MentionCounter) *Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewService(config.DefaultScoring(), social, mentions, log)
}

func TestServiceQuery(t *testing.T) {
	social := &fakeSocial{
		user: &neynar.User{
			FID:           42,
			Username:      "builder",
			FollowerCount: 900,
			PowerBadge:    true,
			Score:         fp(0.9),
		},
		sample: &neynar.FollowerSample{
			Scores:     []float64{0.6, 0.8},
			TotalCount: 4,
			PowerCount: 2,
		},
	}
	mentions := &fakeMentions{count: 7}
	svc := newTestService(social, mentions)

	resp, err := svc.Query(context.Background(), Request{FID: 42, TokenSymbol: "HATCH"})
	require.NoError(t, err)

	assert.Equal(t, "HATCH", mentions.got.Symbol)
	assert.Zero(t, mentions.got.Since)

	require.NotNil(t, resp.CreatorScore)
	assert.InDelta(t, 0.9, *resp.CreatorScore, 1e-9)

	// 0.85*0.7 + 0.15*0.5 = 0.67
	require.NotNil(t, resp.FollowersQuality)
	assert.InDelta(t, 0.67, *resp.FollowersQuality, 1e-9)

	// 0.6*0.9 + 0.4*0.67 = 0.808
	require.NotNil(t, resp.HatchrScore)
	assert.InDelta(t, 0.808, *resp.HatchrScore, 1e-9)

	assert.Equal(t, int64(7), resp.TokenMentions)
	assert.Equal(t, "v1", resp.ScoringVersion)

	require.NotNil(t, resp.Analytics)
	assert.Equal(t, 4, resp.Analytics.SampleSize)
	assert.Equal(t, 2, resp.Analytics.ScoredCount)
	assert.InDelta(t, 0.7, resp.Analytics.AvgScore, 1e-9)
	assert.InDelta(t, 0.5, resp.Analytics.PowerBadgeRatio, 1e-9)

	require.NotNil(t, resp.Creator)
	assert.Equal(t, "builder", resp.Creator.Username)
	assert.True(t, resp.Creator.PowerBadge)
}

func TestServiceQueryMentionWindow(t *testing.T) {
	social := &fakeSocial{
		user: &neynar.User{FID: 42, Username: "builder", Score: fp(0.9)},
	}
	mentions := &fakeMentions{count: 3}
	svc := newTestService(social, mentions)

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	resp, err := svc.Query(context.Background(), Request{
		FID:            42,
		TokenName:      "Hatchling",
		TokenAddress:   "0xabc",
		TokenCreatedAt: created,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.TokenMentions)
	assert.Equal(t, "Hatchling", mentions.got.Name)
	assert.Equal(t, "0xabc", mentions.got.Address)
	assert.Equal(t, created.Unix(), mentions.got.Since)
}

func TestServiceQuerySampleFailureDegrades(t *testing.T) {
	social := &fakeSocial{
		user:      &neynar.User{FID: 42, Username: "builder", Score: fp(0.8)},
		sampleErr: errors.New("rate limited"),
	}
	svc := newTestService(social, nil)

	resp, err := svc.Query(context.Background(), Request{FID: 42})
	require.NoError(t, err)

	assert.Nil(t, resp.FollowersQuality)
	require.NotNil(t, resp.HatchrScore)
	assert.InDelta(t, 0.8, *resp.HatchrScore, 1e-9)
}

func TestServiceQueryRequiresIdentifier(t *testing.T) {
	svc := newTestService(&fakeSocial{}, nil)

	_, err := svc.Query(context.Background(), Request{})
	assert.Error(t, err)
}

func TestCompositeForCreator(t *testing.T) {
	social := &fakeSocial{
		user: &neynar.User{FID: 7, Score: fp(1.0)},
		sample: &neynar.FollowerSample{
			Scores:     []float64{1.0},
			TotalCount: 1,
			PowerCount: 1,
		},
	}
	svc := newTestService(social, nil)

	got, err := svc.CompositeForCreator(context.Background(), 7, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 1.0, *got, 1e-9)
}

func TestCompositeForCreatorUnscored(t *testing.T) {
	social := &fakeSocial{
		user:      &neynar.User{FID: 7},
		sampleErr: errors.New("unavailable"),
	}
	svc := newTestService(social, nil)

	got, err := svc.CompositeForCreator(context.Background(), 7, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

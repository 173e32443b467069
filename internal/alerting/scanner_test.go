package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/notify"
	"github.com/tom1k77/hatchr/internal/storage"
	"github.com/tom1k77/hatchr/internal/token"
)

type fakeStore struct {
	cursor  time.Time
	states  map[string]*storage.TokenAlertState
	markets map[string]*storage.MarketSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:  make(map[string]*storage.TokenAlertState),
		markets: make(map[string]*storage.MarketSnapshot),
	}
}

func (f *fakeStore) GetCursor(ctx context.Context) (time.Time, error) {
	return f.cursor, nil
}

func (f *fakeStore) SetCursor(ctx context.Context, t time.Time) error {
	if t.After(f.cursor) {
		f.cursor = t
	}
	return nil
}

func (f *fakeStore) GetAlertState(ctx context.Context, tokenAddress string) (*storage.TokenAlertState, error) {
	if s, ok := f.states[tokenAddress]; ok {
		copied := *s
		return &copied, nil
	}
	return &storage.TokenAlertState{TokenAddress: tokenAddress}, nil
}

func (f *fakeStore) UpsertAlertState(ctx context.Context, state *storage.TokenAlertState) error {
	held, ok := f.states[state.TokenAddress]
	if !ok {
		copied := *state
		f.states[state.TokenAddress] = &copied
		return nil
	}
	held.AlertedScore90 = held.AlertedScore90 || state.AlertedScore90
	held.AlertedVol1000 = held.AlertedVol1000 || state.AlertedVol1000
	return nil
}

func (f *fakeStore) UpsertMarket(ctx context.Context, m *storage.MarketSnapshot) error {
	copied := *m
	f.markets[m.TokenAddress] = &copied
	return nil
}

type fakeSnapshot struct {
	tokens []token.Token
}

func (f *fakeSnapshot) Snapshot(ctx context.Context) []token.Token {
	return f.tokens
}

type fakeScorer struct {
	score *float64
	calls int
}

func (f *fakeScorer) CompositeForCreator(ctx context.Context, fid int64, username string) (*float64, error) {
	f.calls++
	return f.score, nil
}

type recordingSender struct {
	sent []notify.Notification
}

func (r *recordingSender) Send(ctx context.Context, n *notify.Notification) error {
	r.sent = append(r.sent, *n)
	return nil
}

func fp(v float64) *float64 { return &v }

func testConfig() *config.Config {
	return &config.Config{
		ScanTimeout:    5 * time.Second,
		LookbackWindow: time.Hour,
		Scoring:        config.DefaultScoring(),
	}
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func freshToken(addr string, volume float64) token.Token {
	return token.Token{
		Address:      addr,
		Name:         "Test Token",
		Symbol:       "TST",
		FirstSeenAt:  time.Now().UTC().Add(-time.Minute),
		Volume24hUSD: fp(volume),
	}
}

func TestScanVolumeThresholdFiresOnce(t *testing.T) {
	store := newFakeStore()
	snap := &fakeSnapshot{tokens: []token.Token{freshToken("0xaaa", 1500)}}
	sender := &recordingSender{}
	scanner := New(testConfig(), store, snap, &fakeScorer{}, sender, quietLog())

	summary, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.OK)
	assert.Equal(t, 1, summary.Fresh)
	assert.Equal(t, 1, summary.Sent.Vol1000)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "vol1000:0xaaa", sender.sent[0].ID)
	assert.True(t, store.states["0xaaa"].AlertedVol1000)

	// Volume keeps climbing on a later cycle. Reset the cursor so the
	// token counts as fresh again: the persisted flag alone must stop a
	// second notification.
	store.cursor = time.Time{}
	snap.tokens[0].Volume24hUSD = fp(2000)

	summary, err = scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent.Vol1000)
	assert.Len(t, sender.sent, 1)
}

func TestScanVolumeAtThresholdDoesNotFire(t *testing.T) {
	store := newFakeStore()
	snap := &fakeSnapshot{tokens: []token.Token{freshToken("0xaaa", 1000)}}
	sender := &recordingSender{}
	scanner := New(testConfig(), store, snap, &fakeScorer{}, sender, quietLog())

	summary, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent.Vol1000)
	assert.Empty(t, sender.sent)
}

func TestScanScoreGate(t *testing.T) {
	tok := freshToken("0xbbb", 0)
	tok.Volume24hUSD = nil
	tok.CreatorFID = 42
	tok.CreatorUsername = "builder"

	tests := []struct {
		name      string
		score     *float64
		wantSent  int
		wantState bool
	}{
		{"above threshold fires", fp(0.95), 1, true},
		{"at threshold does not fire", fp(0.9), 0, false},
		{"below threshold does not fire", fp(0.5), 0, false},
		{"unscorable creator does not fire", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			sender := &recordingSender{}
			scanner := New(testConfig(), store, &fakeSnapshot{tokens: []token.Token{tok}}, &fakeScorer{score: tt.score}, sender, quietLog())

			summary, err := scanner.Scan(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantSent, summary.Sent.Score90)
			assert.Len(t, sender.sent, tt.wantSent)
			if tt.wantState {
				assert.True(t, store.states["0xbbb"].AlertedScore90)
				assert.Equal(t, "score90:0xbbb", sender.sent[0].ID)
			}
		})
	}
}

func TestScanScoreSkippedWithoutIdentity(t *testing.T) {
	tok := freshToken("0xccc", 0)
	tok.Volume24hUSD = nil

	store := newFakeStore()
	scorer := &fakeScorer{score: fp(0.99)}
	scanner := New(testConfig(), store, &fakeSnapshot{tokens: []token.Token{tok}}, scorer, &recordingSender{}, quietLog())

	_, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, scorer.calls)

	// No flag was burned, so a later cycle with identity resolved still
	// gets its one notification.
	_, ok := store.states["0xccc"]
	assert.False(t, ok)

	store.cursor = time.Time{}
	tok.CreatorFID = 42
	sender := &recordingSender{}
	scanner = New(testConfig(), store, &fakeSnapshot{tokens: []token.Token{tok}}, scorer, sender, quietLog())

	summary, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent.Score90)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "score90:0xccc", sender.sent[0].ID)
}

type failingSender struct {
	failPrefix string
	sent       []notify.Notification
}

func (f *failingSender) Send(ctx context.Context, n *notify.Notification) error {
	if strings.HasPrefix(n.ID, f.failPrefix) {
		return errors.New("delivery sink unavailable")
	}
	f.sent = append(f.sent, *n)
	return nil
}

func TestScanScoreFlagSurvivesVolumeDispatchFailure(t *testing.T) {
	// One token over both thresholds, but the sink rejects the volume
	// notification. The delivered score90 flag must be persisted anyway so
	// the next cycle does not re-fire it.
	tok := freshToken("0xeee", 5000)
	tok.CreatorFID = 42
	tok.CreatorUsername = "builder"

	store := newFakeStore()
	sender := &failingSender{failPrefix: "vol1000:"}
	scanner := New(testConfig(), store, &fakeSnapshot{tokens: []token.Token{tok}}, &fakeScorer{score: fp(0.95)}, sender, quietLog())

	summary, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent.Score90)
	assert.Equal(t, 0, summary.Sent.Vol1000)

	require.Contains(t, store.states, "0xeee")
	assert.True(t, store.states["0xeee"].AlertedScore90)
	assert.False(t, store.states["0xeee"].AlertedVol1000)

	// Second cycle with the token fresh again: only the still-unsent
	// volume notification may be attempted.
	store.cursor = time.Time{}
	summary, err = scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent.Score90)

	score90Count := 0
	for _, n := range sender.sent {
		if n.ID == "score90:0xeee" {
			score90Count++
		}
	}
	assert.Equal(t, 1, score90Count)
}

func TestScanCursorAdvancesToMaxFirstSeen(t *testing.T) {
	now := time.Now().UTC()
	older := freshToken("0xaaa", 0)
	older.Volume24hUSD = nil
	older.FirstSeenAt = now.Add(-10 * time.Minute)
	newer := freshToken("0xbbb", 0)
	newer.Volume24hUSD = nil
	newer.FirstSeenAt = now.Add(-2 * time.Minute)

	store := newFakeStore()
	scanner := New(testConfig(), store, &fakeSnapshot{tokens: []token.Token{older, newer}}, &fakeScorer{}, &recordingSender{}, quietLog())

	summary, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Fresh)
	assert.True(t, store.cursor.Equal(newer.FirstSeenAt))
	assert.True(t, summary.Cursor.Equal(newer.FirstSeenAt))
}

func TestScanCursorHoldsWithoutFreshTokens(t *testing.T) {
	held := time.Now().UTC().Add(-5 * time.Minute)
	store := newFakeStore()
	store.cursor = held

	stale := freshToken("0xaaa", 5000)
	stale.FirstSeenAt = held.Add(-time.Hour)
	noTimestamp := freshToken("0xbbb", 5000)
	noTimestamp.FirstSeenAt = time.Time{}

	sender := &recordingSender{}
	scanner := New(testConfig(), store, &fakeSnapshot{tokens: []token.Token{stale, noTimestamp}}, &fakeScorer{}, sender, quietLog())

	summary, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Fresh)
	assert.Empty(t, sender.sent)
	assert.True(t, store.cursor.Equal(held))
}

func TestScanPersistsMarketSnapshot(t *testing.T) {
	tok := freshToken("0xddd", 1500)
	tok.PriceUSD = fp(0.02)
	tok.LiquidityUSD = fp(30000)

	store := newFakeStore()
	scanner := New(testConfig(), store, &fakeSnapshot{tokens: []token.Token{tok}}, &fakeScorer{}, &recordingSender{}, quietLog())

	_, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	m := store.markets["0xddd"]
	require.NotNil(t, m)
	assert.Equal(t, 0.02, m.PriceUSD)
	assert.Equal(t, 30000.0, m.LiquidityUSD)
	assert.Equal(t, 1500.0, m.Volume24hUSD)
}

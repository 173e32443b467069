package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/notify"
	"github.com/tom1k77/hatchr/internal/storage"
	"github.com/tom1k77/hatchr/internal/token"
)

// Snapshotter produces the current enriched candidate set
type Snapshotter interface {
	Snapshot(ctx context.Context) []token.Token
}

// Scorer computes the composite reputation score for a creator
type Scorer interface {
	CompositeForCreator(ctx context.Context, fid int64, username string) (*float64, error)
}

// StateStore is the slice of storage the scanner owns: the alert flags,
// the scan cursor, and the market snapshots it persists along the way
type StateStore interface {
	GetCursor(ctx context.Context) (time.Time, error)
	SetCursor(ctx context.Context, t time.Time) error
	GetAlertState(ctx context.Context, tokenAddress string) (*storage.TokenAlertState, error)
	UpsertAlertState(ctx context.Context, state *storage.TokenAlertState) error
	UpsertMarket(ctx context.Context, m *storage.MarketSnapshot) error
}

// SentCounts breaks a scan's dispatched notifications down by threshold
type SentCounts struct {
	Score90 int `json:"score90"`
	Vol1000 int `json:"vol1000"`
}

// Summary is the result of one scan cycle
type Summary struct {
	OK      bool       `json:"ok"`
	Checked int        `json:"checked"`
	Fresh   int        `json:"fresh"`
	Cursor  time.Time  `json:"cursor"`
	Sent    SentCounts `json:"sent"`
}

// Scanner walks fresh tokens against the persisted cursor and per-token
// flags, firing each threshold notification at most once per token. The
// flags never reset, so a token that stays above a threshold forever still
// alerts exactly once.
type Scanner struct {
	cfg      *config.Config
	store    StateStore
	pipeline Snapshotter
	scorer   Scorer
	sender   notify.Sender
	log      *logrus.Logger
}

// New creates a new scanner
func New(
	cfg *config.Config,
	store StateStore,
	pipeline Snapshotter,
	scorer Scorer,
	sender notify.Sender,
	log *logrus.Logger,
) *Scanner {
	return &Scanner{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		scorer:   scorer,
		sender:   sender,
		log:      log,
	}
}

// Scan runs one cycle: snapshot, filter to tokens first seen after the
// cursor, check thresholds, then advance the cursor
func (s *Scanner) Scan(ctx context.Context) (*Summary, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	cursor, err := s.store.GetCursor(ctx)
	if err != nil {
		metrics.RecordScan(time.Since(start), err)
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	if cursor.IsZero() {
		cursor = time.Now().UTC().Add(-s.cfg.LookbackWindow)
	}

	candidates := s.pipeline.Snapshot(ctx)

	var fresh []token.Token
	for _, t := range candidates {
		if !t.FirstSeenAt.IsZero() && t.FirstSeenAt.After(cursor) {
			fresh = append(fresh, t)
		}
	}
	metrics.FreshTokens.Observe(float64(len(fresh)))

	s.log.WithFields(logrus.Fields{
		"checked": len(candidates),
		"fresh":   len(fresh),
		"cursor":  cursor.Format(time.RFC3339),
	}).Info("Alert scan started")

	summary := &Summary{Checked: len(candidates), Fresh: len(fresh)}
	var maxSeen time.Time

	for i := range fresh {
		t := &fresh[i]

		if err := s.checkToken(ctx, t, summary); err != nil {
			s.log.WithError(err).WithField("token", t.Address).Error("Failed to check token")
		}

		if t.FirstSeenAt.After(maxSeen) {
			maxSeen = t.FirstSeenAt
		}
	}

	// Advance only when the batch carried a usable timestamp, and never
	// past what was actually observed.
	if !maxSeen.IsZero() && maxSeen.After(cursor) {
		if err := s.store.SetCursor(ctx, maxSeen); err != nil {
			metrics.RecordScan(time.Since(start), err)
			return nil, fmt.Errorf("set cursor: %w", err)
		}
		cursor = maxSeen
	}

	summary.OK = true
	summary.Cursor = cursor

	metrics.RecordScan(time.Since(start), nil)
	s.log.WithFields(logrus.Fields{
		"fresh":        summary.Fresh,
		"sent_score90": summary.Sent.Score90,
		"sent_vol1000": summary.Sent.Vol1000,
		"duration":     time.Since(start).String(),
	}).Info("Alert scan finished")

	return summary, nil
}

func (s *Scanner) checkToken(ctx context.Context, t *token.Token, summary *Summary) error {
	s.persistMarket(ctx, t)

	state, err := s.store.GetAlertState(ctx, t.Address)
	if err != nil {
		return fmt.Errorf("get alert state: %w", err)
	}

	// A flag is persisted right after its dispatch succeeds, before the
	// other threshold is checked: a failure later in the cycle must not
	// resurrect an already-fired tag.
	if !state.AlertedScore90 && t.HasCreatorIdentity() {
		fired, err := s.checkScore(ctx, t)
		if err != nil {
			s.log.WithError(err).WithField("token", t.Address).Warn("Score check failed, will retry next cycle")
		} else if fired {
			state.AlertedScore90 = true
			summary.Sent.Score90++
			if err := s.store.UpsertAlertState(ctx, state); err != nil {
				return fmt.Errorf("upsert alert state: %w", err)
			}
		}
	}

	if !state.AlertedVol1000 && t.Volume24hUSD != nil && *t.Volume24hUSD > s.cfg.Scoring.VolumeAlertThreshold {
		if err := s.dispatch(ctx, t, fmt.Sprintf("vol1000:%s", t.Address),
			fmt.Sprintf("%s is trading", displayName(t)),
			fmt.Sprintf("$%s has done $%.0f in 24h volume on Base", t.Symbol, *t.Volume24hUSD)); err != nil {
			return fmt.Errorf("dispatch vol1000: %w", err)
		}
		state.AlertedVol1000 = true
		summary.Sent.Vol1000++
		if err := s.store.UpsertAlertState(ctx, state); err != nil {
			return fmt.Errorf("upsert alert state: %w", err)
		}
	}

	return nil
}

// checkScore computes the composite and dispatches the score90
// notification when it clears the threshold. A token with no resolvable
// creator never reaches here; it gets re-checked on later cycles once
// enrichment resolves one.
func (s *Scanner) checkScore(ctx context.Context, t *token.Token) (bool, error) {
	score, err := s.scorer.CompositeForCreator(ctx, t.CreatorFID, t.CreatorUsername)
	if err != nil {
		return false, fmt.Errorf("score creator: %w", err)
	}
	if score == nil || *score <= s.cfg.Scoring.ScoreAlertThreshold {
		return false, nil
	}

	if err := s.dispatch(ctx, t, fmt.Sprintf("score90:%s", t.Address),
		fmt.Sprintf("High-reputation launch: %s", displayName(t)),
		fmt.Sprintf("@%s (hatchr score %.2f) launched $%s", t.CreatorUsername, *score, t.Symbol)); err != nil {
		return false, fmt.Errorf("dispatch score90: %w", err)
	}
	return true, nil
}

func (s *Scanner) dispatch(ctx context.Context, t *token.Token, tag, title, body string) error {
	n := &notify.Notification{
		ID:        tag,
		Title:     title,
		Body:      body,
		TargetURL: t.SourceURL,
	}
	if err := s.sender.Send(ctx, n); err != nil {
		metrics.AlertSendErrors.Inc()
		return err
	}

	alertType := "vol1000"
	if len(tag) >= 7 && tag[:7] == "score90" {
		alertType = "score90"
	}
	metrics.AlertsSent.WithLabelValues(alertType).Inc()
	return nil
}

func (s *Scanner) persistMarket(ctx context.Context, t *token.Token) {
	if t.PriceUSD == nil && t.MarketCapUSD == nil && t.LiquidityUSD == nil && t.Volume24hUSD == nil {
		return
	}
	m := &storage.MarketSnapshot{TokenAddress: t.Address}
	if t.PriceUSD != nil {
		m.PriceUSD = *t.PriceUSD
	}
	if t.MarketCapUSD != nil {
		m.MarketCapUSD = *t.MarketCapUSD
	}
	if t.LiquidityUSD != nil {
		m.LiquidityUSD = *t.LiquidityUSD
	}
	if t.Volume24hUSD != nil {
		m.Volume24hUSD = *t.Volume24hUSD
	}
	if err := s.store.UpsertMarket(ctx, m); err != nil {
		s.log.WithError(err).WithField("token", t.Address).Warn("Failed to persist market snapshot")
	}
}

func displayName(t *token.Token) string {
	if t.Name != "" {
		return t.Name
	}
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address
}

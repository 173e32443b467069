package storage

import (
	"time"

	"gorm.io/gorm"
)

// MarketSnapshot is the last observed market state for a token.
// Overwritten on every enrichment pass, never historized.
type MarketSnapshot struct {
	TokenAddress string  `gorm:"primaryKey;size:64"`
	PriceUSD     float64 `gorm:"type:decimal(30,12)"`
	MarketCapUSD float64 `gorm:"type:decimal(20,2)"`
	LiquidityUSD float64 `gorm:"type:decimal(20,2)"`
	Volume24hUSD float64 `gorm:"type:decimal(20,2)"`
	UpdatedTS    int64   `gorm:"column:updated_at;not null;index"`
}

func (MarketSnapshot) TableName() string {
	return "markets"
}

// TokenAlertState tracks which threshold notifications have fired for a
// token. Both flags are monotonic: they only ever go false to true.
type TokenAlertState struct {
	TokenAddress   string `gorm:"primaryKey;size:64"`
	AlertedScore90 bool   `gorm:"column:alerted_score_90;not null;default:false"`
	AlertedVol1000 bool   `gorm:"column:alerted_vol_1000;not null;default:false"`
	UpdatedTS      int64  `gorm:"column:updated_at;not null"`
}

func (TokenAlertState) TableName() string {
	return "token_alert_state"
}

// NotifyCursor is the single persisted watermark for the alert scan
type NotifyCursor struct {
	ID         int   `gorm:"primaryKey"`
	LastSeenTS int64 `gorm:"column:last_seen_at;not null"`
}

func (NotifyCursor) TableName() string {
	return "notify_cursor"
}

// SocialSignal is a cast accepted from the webhook intake
type SocialSignal struct {
	CastHash         string  `gorm:"primaryKey;size:128"`
	AuthorFID        int64   `gorm:"not null;index"`
	AuthorUsername   string  `gorm:"size:255"`
	AuthorScore      float64 `gorm:"type:decimal(5,4);not null"`
	Text             string  `gorm:"type:text"`
	TickerMentions   string  `gorm:"size:512"` // comma-separated $TICKER matches
	ContractMentions string  `gorm:"size:1024;index"`
	CastTS           int64   `gorm:"not null;index"`
	CreatedTS        int64   `gorm:"not null"`
}

func (SocialSignal) TableName() string {
	return "social_signals"
}

// NotificationToken is a subscriber push token for the delivery sink
type NotificationToken struct {
	Token     string `gorm:"primaryKey;size:255"`
	FID       int64  `gorm:"index"`
	Active    bool   `gorm:"not null;default:true;index"`
	CreatedTS int64  `gorm:"not null"`
	UpdatedTS int64  `gorm:"not null"`
}

func (NotificationToken) TableName() string {
	return "notification_tokens"
}

// BeforeCreate hooks fill timestamps when callers omit them

func (m *MarketSnapshot) BeforeCreate(tx *gorm.DB) error {
	if m.UpdatedTS == 0 {
		m.UpdatedTS = time.Now().Unix()
	}
	return nil
}

func (s *TokenAlertState) BeforeCreate(tx *gorm.DB) error {
	if s.UpdatedTS == 0 {
		s.UpdatedTS = time.Now().Unix()
	}
	return nil
}

func (s *SocialSignal) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedTS == 0 {
		s.CreatedTS = time.Now().Unix()
	}
	return nil
}

func (n *NotificationToken) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().Unix()
	if n.CreatedTS == 0 {
		n.CreatedTS = now
	}
	if n.UpdatedTS == 0 {
		n.UpdatedTS = now
	}
	return nil
}

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const notifyCursorID = 1

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DatabaseMaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs GORM auto-migration
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&MarketSnapshot{},
		&TokenAlertState{},
		&NotifyCursor{},
		&SocialSignal{},
		&NotificationToken{},
	)
}

// UpsertMarket overwrites the market snapshot for a token (last write wins)
func (db *DB) UpsertMarket(ctx context.Context, m *MarketSnapshot) error {
	if m.UpdatedTS == 0 {
		m.UpdatedTS = time.Now().Unix()
	}
	return db.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_address"}},
		UpdateAll: true,
	}).Create(m).Error
}

// GetMarket retrieves the latest market snapshot for a token, nil if none
func (db *DB) GetMarket(ctx context.Context, tokenAddress string) (*MarketSnapshot, error) {
	var m MarketSnapshot
	result := db.conn.WithContext(ctx).Where("token_address = ?", tokenAddress).First(&m)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &m, nil
}

// GetAlertState retrieves the alert flags for a token. A missing row reads
// as both flags false, which is what makes retry-after-failure natural.
func (db *DB) GetAlertState(ctx context.Context, tokenAddress string) (*TokenAlertState, error) {
	var state TokenAlertState
	result := db.conn.WithContext(ctx).Where("token_address = ?", tokenAddress).First(&state)
	if result.Error == gorm.ErrRecordNotFound {
		return &TokenAlertState{TokenAddress: tokenAddress}, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &state, nil
}

// UpsertAlertState persists alert flags. Flags are only ever raised: the
// upsert ORs the incoming flags with whatever is already stored so a
// concurrent scan can never reset one.
func (db *DB) UpsertAlertState(ctx context.Context, state *TokenAlertState) error {
	state.UpdatedTS = time.Now().Unix()
	return db.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"alerted_score_90": gorm.Expr("alerted_score_90 OR VALUES(alerted_score_90)"),
			"alerted_vol_1000": gorm.Expr("alerted_vol_1000 OR VALUES(alerted_vol_1000)"),
			"updated_at":       state.UpdatedTS,
		}),
	}).Create(state).Error
}

// GetCursor returns the alert-scan watermark, zero if never set
func (db *DB) GetCursor(ctx context.Context) (time.Time, error) {
	var cursor NotifyCursor
	result := db.conn.WithContext(ctx).Where("id = ?", notifyCursorID).First(&cursor)
	if result.Error == gorm.ErrRecordNotFound {
		return time.Time{}, nil
	}
	if result.Error != nil {
		return time.Time{}, result.Error
	}
	return time.Unix(cursor.LastSeenTS, 0).UTC(), nil
}

// SetCursor advances the watermark. Moving it backward is refused at this
// layer so a slow concurrent scan cannot rewind a newer one.
func (db *DB) SetCursor(ctx context.Context, t time.Time) error {
	ts := t.Unix()
	return db.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seen_at": gorm.Expr("GREATEST(last_seen_at, VALUES(last_seen_at))"),
		}),
	}).Create(&NotifyCursor{ID: notifyCursorID, LastSeenTS: ts}).Error
}

// InsertSocialSignal stores an accepted cast, ignoring redelivery of the
// same cast hash
func (db *DB) InsertSocialSignal(ctx context.Context, signal *SocialSignal) error {
	return db.conn.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(signal).Error
}

// MentionQuery scopes the social-signal mention count
type MentionQuery struct {
	Symbol  string // with or without the $ prefix
	Address string
	Name    string
	Since   int64 // unix seconds; 0 means no lower bound
}

// CountSignalMentions counts stored signals mentioning a token. Symbol and
// address match whole entries of the comma-separated mention columns, so
// symbol A does not count a stored $ABC; the name is a free-text match in
// the cast body. Since restricts the count to casts at or after the
// token's creation.
func (db *DB) CountSignalMentions(ctx context.Context, q MentionQuery) (int64, error) {
	var conds []string
	var args []interface{}

	if q.Symbol != "" {
		symbol := "$" + strings.TrimPrefix(q.Symbol, "$")
		conds = append(conds, "CONCAT(',', ticker_mentions, ',') LIKE ?")
		args = append(args, listPattern(symbol))
	}
	if q.Address != "" {
		conds = append(conds, "CONCAT(',', contract_mentions, ',') LIKE ?")
		args = append(args, listPattern(q.Address))
	}
	if q.Name != "" {
		conds = append(conds, "text LIKE ?")
		args = append(args, "%"+escapeLike(q.Name)+"%")
	}
	if len(conds) == 0 {
		return 0, nil
	}

	tx := db.conn.WithContext(ctx).Model(&SocialSignal{}).
		Where(strings.Join(conds, " OR "), args...)
	if q.Since > 0 {
		tx = tx.Where("cast_ts >= ?", q.Since)
	}

	var count int64
	result := tx.Count(&count)
	return count, result.Error
}

// listPattern matches one whole entry of a comma-separated column wrapped
// in leading/trailing commas
func listPattern(entry string) string {
	return "%," + escapeLike(entry) + ",%"
}

// escapeLike neutralizes LIKE wildcards in user-supplied match values
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}

// ActiveNotificationTokens returns the current push audience
func (db *DB) ActiveNotificationTokens(ctx context.Context) ([]NotificationToken, error) {
	var tokens []NotificationToken
	result := db.conn.WithContext(ctx).Where("active = ?", true).Find(&tokens)
	return tokens, result.Error
}

// DeactivateNotificationTokens marks tokens the delivery sink reported
// invalid
func (db *DB) DeactivateNotificationTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return db.conn.WithContext(ctx).
		Model(&NotificationToken{}).
		Where("token IN ?", tokens).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_ts": time.Now().Unix(),
		}).Error
}

// UpsertNotificationToken registers or reactivates a subscriber token
func (db *DB) UpsertNotificationToken(ctx context.Context, tok *NotificationToken) error {
	now := time.Now().Unix()
	tok.UpdatedTS = now
	return db.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"active":     tok.Active,
			"fid":        tok.FID,
			"updated_ts": now,
		}),
	}).Create(tok).Error
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

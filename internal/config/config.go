package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tom1k77/hatchr/internal/secrets"
)

// Scoring holds every weight and threshold of the reputation formula so a
// formula change is a single auditable diff. Version is bumped whenever a
// weight changes meaning.
type Scoring struct {
	Version string

	// hatchrScore = CreatorWeight*creatorScore + FollowersWeight*followersQuality
	CreatorWeight   float64
	FollowersWeight float64

	// followersQuality = AvgScoreWeight*avgFollowerScore + PowerBadgeWeight*powerBadgeRatio
	AvgScoreWeight   float64
	PowerBadgeWeight float64

	// Alert gates
	ScoreAlertThreshold  float64 // hatchr score above this fires score90
	VolumeAlertThreshold float64 // 24h USD volume above this fires vol1000

	// Follower sampling
	FollowerSampleSize int
	SizeAwareMaxRef    int // reference follower count for the size-aware variant
}

// DefaultScoring returns the v1 formula constants
func DefaultScoring() Scoring {
	return Scoring{
		Version:              "v1",
		CreatorWeight:        0.6,
		FollowersWeight:      0.4,
		AvgScoreWeight:       0.85,
		PowerBadgeWeight:     0.15,
		ScoreAlertThreshold:  0.9,
		VolumeAlertThreshold: 1000.0,
		FollowerSampleSize:   150,
		SizeAwareMaxRef:      1000,
	}
}

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration

	// Launch platform APIs
	ClankerBaseURL string
	FlaunchBaseURL string

	// Market data
	DexScreenerBaseURL string

	// Block explorer
	BasescanBaseURL string
	BasescanAPIKey  string

	// Social graph
	NeynarBaseURL string
	NeynarAPIKey  string

	// Webhook intake
	WebhookSecret   string
	WebhookMinScore float64

	// Notification delivery
	NotifyDeliveryURL string
	NotifyMode        string // log, push, or "log,push"

	// Alert scan
	ScanCron        string
	ScanTimeout     time.Duration
	LookbackWindow  time.Duration // cursor default when none persisted
	AdapterTimeout  time.Duration
	EnrichWorkers   int
	AdapterPageSize int // tokens requested per adapter per scan

	// Rate limits (requests per second)
	DexScreenerRPS float64
	NeynarRPS      float64
	BasescanRPS    float64

	// Scoring formula
	Scoring Scoring

	// HTTP (API + health + metrics)
	HTTPPort int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment:         getEnv("ENVIRONMENT", "production"),
		DatabaseDSN:         getEnv("DATABASE_DSN", "hatchr:hatchr@tcp(mysql:3306)/hatchr?parseTime=true"),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 25),
		DatabaseMaxIdleTime: time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		ClankerBaseURL:      getEnv("CLANKER_BASE_URL", "https://www.clanker.world/api"),
		FlaunchBaseURL:      getEnv("FLAUNCH_BASE_URL", "https://api.flaunch.gg/v1/base"),
		DexScreenerBaseURL:  getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"),
		BasescanBaseURL:     getEnv("BASESCAN_BASE_URL", "https://api.basescan.org/api"),
		BasescanAPIKey:      secrets.GetOptionalSecret("BASESCAN_API_KEY", ""),
		NeynarBaseURL:       getEnv("NEYNAR_BASE_URL", "https://api.neynar.com/v2"),
		NeynarAPIKey:        secrets.GetOptionalSecret("NEYNAR_API_KEY", ""),
		WebhookSecret:       secrets.GetOptionalSecret("NEYNAR_WEBHOOK_SECRET", ""),
		WebhookMinScore:     getEnvFloat("WEBHOOK_MIN_AUTHOR_SCORE", 0.5),
		NotifyDeliveryURL:   getEnv("NOTIFY_DELIVERY_URL", ""),
		NotifyMode:          getEnv("NOTIFY_MODE", "log"),
		ScanCron:            getEnv("SCAN_CRON", "*/5 * * * *"),
		ScanTimeout:         time.Duration(getEnvInt("SCAN_TIMEOUT_SEC", 12)) * time.Second,
		LookbackWindow:      time.Duration(getEnvInt("NOTIFY_LOOKBACK_MINS", 360)) * time.Minute,
		AdapterTimeout:      time.Duration(getEnvInt("ADAPTER_TIMEOUT_SEC", 15)) * time.Second,
		EnrichWorkers:       getEnvInt("ENRICH_WORKERS", 5),
		AdapterPageSize:     getEnvInt("ADAPTER_PAGE_SIZE", 50),
		DexScreenerRPS:      getEnvFloat("DEXSCREENER_RPS", 5.0),
		NeynarRPS:           getEnvFloat("NEYNAR_RPS", 2.0),
		BasescanRPS:         getEnvFloat("BASESCAN_RPS", 3.0),
		Scoring:             loadScoring(),
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadScoring() Scoring {
	s := DefaultScoring()
	s.CreatorWeight = getEnvFloat("SCORE_CREATOR_WEIGHT", s.CreatorWeight)
	s.FollowersWeight = getEnvFloat("SCORE_FOLLOWERS_WEIGHT", s.FollowersWeight)
	s.AvgScoreWeight = getEnvFloat("SCORE_AVG_WEIGHT", s.AvgScoreWeight)
	s.PowerBadgeWeight = getEnvFloat("SCORE_POWER_BADGE_WEIGHT", s.PowerBadgeWeight)
	s.ScoreAlertThreshold = getEnvFloat("SCORE_ALERT_THRESHOLD", s.ScoreAlertThreshold)
	s.VolumeAlertThreshold = getEnvFloat("VOLUME_ALERT_THRESHOLD", s.VolumeAlertThreshold)
	s.FollowerSampleSize = getEnvInt("FOLLOWER_SAMPLE_SIZE", s.FollowerSampleSize)
	s.SizeAwareMaxRef = getEnvInt("SIZE_AWARE_MAX_REF", s.SizeAwareMaxRef)
	return s
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}

	if c.Scoring.CreatorWeight < 0 || c.Scoring.FollowersWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.Scoring.FollowerSampleSize <= 0 {
		return fmt.Errorf("FOLLOWER_SAMPLE_SIZE must be positive")
	}

	switch c.NotifyMode {
	case "log", "push", "log,push", "push,log":
	default:
		return fmt.Errorf("invalid NOTIFY_MODE: %s (valid values: log, push, log,push)", c.NotifyMode)
	}
	if c.NotifyMode != "log" && c.NotifyDeliveryURL == "" {
		return fmt.Errorf("NOTIFY_DELIVERY_URL is required when NOTIFY_MODE includes push")
	}

	if c.ScanTimeout <= 0 {
		return fmt.Errorf("SCAN_TIMEOUT_SEC must be positive")
	}
	if c.LookbackWindow <= 0 {
		return fmt.Errorf("NOTIFY_LOOKBACK_MINS must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/alerting"
	"github.com/tom1k77/hatchr/internal/basescan"
	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/dexscreener"
	"github.com/tom1k77/hatchr/internal/enrich"
	"github.com/tom1k77/hatchr/internal/neynar"
	"github.com/tom1k77/hatchr/internal/notify"
	"github.com/tom1k77/hatchr/internal/pipeline"
	"github.com/tom1k77/hatchr/internal/score"
	"github.com/tom1k77/hatchr/internal/server"
	"github.com/tom1k77/hatchr/internal/sources/clanker"
	"github.com/tom1k77/hatchr/internal/sources/flaunch"
	"github.com/tom1k77/hatchr/internal/storage"
	"github.com/tom1k77/hatchr/internal/webhook"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting hatchr service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"environment":     cfg.Environment,
		"scan_cron":       cfg.ScanCron,
		"lookback_mins":   cfg.LookbackWindow.Minutes(),
		"notify_mode":     cfg.NotifyMode,
		"scoring_version": cfg.Scoring.Version,
	}).Info("Configuration loaded")

	// Initialize database
	db, err := storage.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	log.Info("Database connected")

	if err := db.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}

	log.Info("Database migrations complete")

	// Initialize API clients
	clankerClient := clanker.NewClient(cfg)
	flaunchClient := flaunch.NewClient(cfg)
	dexClient := dexscreener.NewClient(cfg)
	basescanClient := basescan.NewClient(cfg)
	neynarClient := neynar.NewClient(cfg)

	if cfg.NeynarAPIKey == "" {
		log.Warn("NEYNAR_API_KEY not set, creator scoring disabled")
	}
	if cfg.BasescanAPIKey == "" {
		log.Warn("BASESCAN_API_KEY not set, contract creator fallback disabled")
	}

	log.Info("API clients initialized")

	// Assemble the discovery pipeline
	enricher := enrich.New(cfg, dexClient, basescanClient, neynarClient, log)
	pipe := pipeline.New(enricher, log, clankerClient, flaunchClient)

	// Scoring and notification
	scoreSvc := score.NewService(cfg.Scoring, neynarClient, db, log)
	sender := createNotifySender(cfg, db, log)

	log.WithField("notify_mode", cfg.NotifyMode).Info("Notification sender initialized")

	scanner := alerting.New(cfg, db, pipe, scoreSvc, sender, log)

	// HTTP API
	webhookHandler := webhook.NewHandler(cfg.WebhookSecret, cfg.WebhookMinScore, db, log)
	srv := server.New(cfg, scoreSvc, scanner, webhookHandler, db, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.WithError(err).Error("HTTP server failed")
		}
	}()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Scan immediately on startup, then on the cron schedule
	runScan := func() {
		if _, err := scanner.Scan(ctx); err != nil {
			log.WithError(err).Error("Alert scan failed")
		}
	}

	runScan()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ScanCron, runScan); err != nil {
		log.WithError(err).Fatal("Invalid scan cron expression")
	}
	scheduler.Start()

	log.WithField("cron", cfg.ScanCron).Info("Alert scan scheduled")

	sig := <-sigChan
	log.WithField("signal", sig).Info("Received shutdown signal")

	cancel()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	log.Info("Graceful shutdown complete")
}

func createNotifySender(cfg *config.Config, db *storage.DB, log *logrus.Logger) notify.Sender {
	modes := strings.Split(cfg.NotifyMode, ",")
	for i, mode := range modes {
		modes[i] = strings.TrimSpace(mode)
	}

	senders := []notify.Sender{}
	for _, mode := range modes {
		switch mode {
		case "log":
			senders = append(senders, notify.NewLogSender(log))
		case "push":
			if cfg.NotifyDeliveryURL == "" {
				log.Warn("Push mode specified but NOTIFY_DELIVERY_URL not set")
				continue
			}
			senders = append(senders, notify.NewPushSender(cfg.NotifyDeliveryURL, db, log))
		default:
			log.WithField("mode", mode).Warn("Unknown notify mode, skipping")
		}
	}

	if len(senders) == 0 {
		log.Warn("No valid notification senders configured, using log")
		return notify.NewLogSender(log)
	}
	if len(senders) == 1 {
		return senders[0]
	}
	return notify.NewMultiSender(senders...)
}

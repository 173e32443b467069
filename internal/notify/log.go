package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes notifications to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the notification
func (s *LogSender) Send(ctx context.Context, n *Notification) error {
	s.log.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"title":           n.Title,
		"body":            n.Body,
		"target_url":      n.TargetURL,
	}).Info("Notification generated")
	return nil
}

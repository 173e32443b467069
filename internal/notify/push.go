package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/storage"
)

// TokenRegistry provides the device tokens that push deliveries target
type TokenRegistry interface {
	ActiveNotificationTokens(ctx context.Context) ([]storage.NotificationToken, error)
	DeactivateNotificationTokens(ctx context.Context, tokens []string) error
}

// PushSender delivers notifications to registered device tokens through the
// push delivery endpoint. Tokens the endpoint reports as invalid are
// deactivated so they are not targeted again.
type PushSender struct {
	deliveryURL string
	registry    TokenRegistry
	httpClient  *http.Client
	log         *logrus.Logger
}

// NewPushSender creates a new push sender
func NewPushSender(deliveryURL string, registry TokenRegistry, log *logrus.Logger) *PushSender {
	return &PushSender{
		deliveryURL: deliveryURL,
		registry:    registry,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

type pushRequest struct {
	NotificationID string   `json:"notificationId"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	TargetURL      string   `json:"targetUrl"`
	Tokens         []string `json:"tokens"`
}

type pushResponse struct {
	InvalidTokens []string `json:"invalidTokens"`
}

// Send posts the notification to the delivery endpoint for every active
// token. A run with no registered tokens is a no-op, not an error.
func (s *PushSender) Send(ctx context.Context, n *Notification) error {
	registered, err := s.registry.ActiveNotificationTokens(ctx)
	if err != nil {
		return fmt.Errorf("load notification tokens: %w", err)
	}
	if len(registered) == 0 {
		s.log.WithField("notification_id", n.ID).Debug("No active notification tokens, skipping push")
		return nil
	}

	tokens := make([]string, 0, len(registered))
	for _, t := range registered {
		tokens = append(tokens, t.Token)
	}

	body, err := json.Marshal(pushRequest{
		NotificationID: n.ID,
		Title:          n.Title,
		Body:           n.Body,
		TargetURL:      n.TargetURL,
		Tokens:         tokens,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.deliveryURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}

	if len(result.InvalidTokens) > 0 {
		if err := s.registry.DeactivateNotificationTokens(ctx, result.InvalidTokens); err != nil {
			s.log.WithError(err).Warn("Failed to deactivate invalid notification tokens")
		} else {
			s.log.WithField("count", len(result.InvalidTokens)).Info("Deactivated invalid notification tokens")
		}
	}

	return nil
}

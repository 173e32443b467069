package notify

import (
	"context"
)

// Notification is a single alert delivery. ID carries the dedup tag, e.g.
// "score90:0xabc...", so downstream receivers can collapse retries.
type Notification struct {
	ID        string
	Title     string
	Body      string
	TargetURL string
}

// Sender defines the interface for notification senders
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

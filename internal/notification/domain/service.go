package domain

import (
	"context"
	"errors"

	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
)

// Service owns the notification outbox: it converts freshly raised
// alerts into per-recipient intents, and a dispatch pass delivers
// whatever is pending.
type Service interface {
	// Enqueue builds one consolidated intent per recipient and enabled
	// channel for the alerts governed by cfg, and persists them.
	Enqueue(ctx context.Context, alerts []alertdomain.CovenantAlert, cfg alertdomain.CovenantAlertConfig) ([]NotificationIntent, error)
	// DispatchPending delivers deliverable intents and returns how many
	// were sent.
	DispatchPending(ctx context.Context) (int, error)
	ListInApp(ctx context.Context, userID string) ([]InAppMessage, error)
}

var ErrInvalidRecipient = errors.New("invalid_recipient")

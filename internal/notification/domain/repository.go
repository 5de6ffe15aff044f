package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertIntents(ctx context.Context, db *gorm.DB, intents []NotificationIntent) error
	// ListDeliverable returns intents still owed a delivery attempt:
	// pending rows plus failed rows under the attempt cap whose last
	// attempt happened at or before retryBefore.
	ListDeliverable(ctx context.Context, db *gorm.DB, maxAttempts, limit int, retryBefore time.Time) ([]NotificationIntent, error)
	MarkSent(ctx context.Context, db *gorm.DB, id string, at time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id string, reason string, at time.Time) error
	InsertInApp(ctx context.Context, db *gorm.DB, message *InAppMessage) error
	ListInAppByUser(ctx context.Context, db *gorm.DB, userID string) ([]InAppMessage, error)
}

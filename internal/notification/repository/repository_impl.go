package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/covena/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIntents(ctx context.Context, db *gorm.DB, intents []domain.NotificationIntent) error {
	if len(intents) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&intents).Error
}

func (r *repo) ListDeliverable(ctx context.Context, db *gorm.DB, maxAttempts, limit int, retryBefore time.Time) ([]domain.NotificationIntent, error) {
	var intents []domain.NotificationIntent
	stmt := db.WithContext(ctx).
		Where("status = ? OR (status = ? AND attempts < ? AND updated_at <= ?)",
			domain.IntentPending, domain.IntentFailed, maxAttempts, retryBefore).
		Order("created_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&intents).Error; err != nil {
		return nil, err
	}
	return intents, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.NotificationIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.IntentSent,
			"sent_at":    at,
			"updated_at": at,
		}).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id string, reason string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.NotificationIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.IntentFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
			"updated_at": at,
		}).Error
}

func (r *repo) InsertInApp(ctx context.Context, db *gorm.DB, message *domain.InAppMessage) error {
	return db.WithContext(ctx).Create(message).Error
}

func (r *repo) ListInAppByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.InAppMessage, error) {
	var messages []domain.InAppMessage
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/alert/domain"
	"github.com/smallbiznis/covena/pkg/db/option"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertNew(ctx context.Context, db *gorm.DB, alerts []domain.CovenantAlert) ([]domain.CovenantAlert, error) {
	inserted := make([]domain.CovenantAlert, 0, len(alerts))
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, alert := range alerts {
			active, err := r.HasActiveOfType(ctx, tx, alert.CovenantConfigID, alert.AlertType)
			if err != nil {
				return err
			}
			if active {
				continue
			}
			if err := tx.Create(&alert).Error; err != nil {
				return err
			}
			inserted = append(inserted, alert)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.CovenantAlert, error) {
	var alert domain.CovenantAlert
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&alert).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListAlertFilter, page pagination.Pagination) ([]*domain.CovenantAlert, error) {
	var alerts []*domain.CovenantAlert
	stmt := db.WithContext(ctx).Model(&domain.CovenantAlert{})
	if filter.CompanyID != 0 {
		stmt = stmt.Where("company_id = ?", filter.CompanyID)
	}
	if filter.ActiveOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) ListByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.CovenantAlert, error) {
	var alerts []domain.CovenantAlert
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at desc, id desc").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) MarkAcknowledged(ctx context.Context, db *gorm.DB, id, userID string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.CovenantAlert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"acknowledged_by": userID,
			"acknowledged_at": at,
		}).Error
}

func (r *repo) MarkResolved(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.CovenantAlert{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Updates(map[string]any{
			"resolved_at": at,
			"is_active":   false,
		}).Error
}

func (r *repo) ResolveActiveByType(ctx context.Context, db *gorm.DB, configID snowflake.ID, types []domain.AlertType, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.CovenantAlert{}).
		Where("covenant_config_id = ? AND alert_type IN ? AND is_active = ?", configID, types, true).
		Updates(map[string]any{
			"resolved_at": at,
			"is_active":   false,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) HasActiveOfType(ctx context.Context, db *gorm.DB, configID snowflake.ID, alertType domain.AlertType) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.CovenantAlert{}).
		Where("covenant_config_id = ? AND alert_type = ? AND is_active = ?", configID, alertType, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

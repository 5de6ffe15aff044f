package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/alert/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type configRepo struct{}

func ProvideConfigRepository() domain.ConfigRepository {
	return &configRepo{}
}

func (r *configRepo) Upsert(ctx context.Context, db *gorm.DB, config *domain.CovenantAlertConfig) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "covenant_config_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_active", "alert_on_breach", "alert_on_approaching", "alert_on_trending",
				"approaching_threshold", "trend_period", "trend_threshold",
				"email_enabled", "in_app_enabled", "notify_users", "updated_at",
			}),
		}).
		Create(config).Error
}

func (r *configRepo) FindByCovenantConfig(ctx context.Context, db *gorm.DB, covenantConfigID snowflake.ID) (*domain.CovenantAlertConfig, error) {
	var config domain.CovenantAlertConfig
	err := db.WithContext(ctx).
		Where("covenant_config_id = ?", covenantConfigID).
		First(&config).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *configRepo) ListByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.CovenantAlertConfig, error) {
	var configs []domain.CovenantAlertConfig
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id asc").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *configRepo) ListActive(ctx context.Context, db *gorm.DB, covenantConfigIDs []snowflake.ID) ([]domain.CovenantAlertConfig, error) {
	if len(covenantConfigIDs) == 0 {
		return nil, nil
	}
	var configs []domain.CovenantAlertConfig
	err := db.WithContext(ctx).
		Where("covenant_config_id IN ? AND is_active = ?", covenantConfigIDs, true).
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/covenant/domain"
	"github.com/smallbiznis/covena/pkg/db/option"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, config *domain.CovenantConfig) error {
	return db.WithContext(ctx).Create(config).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, config *domain.CovenantConfig) error {
	return db.WithContext(ctx).
		Model(&domain.CovenantConfig{}).
		Where("id = ?", config.ID).
		Select("name", "is_active", "threshold_value", "minimum_value", "maximum_value",
			"requirements", "restrictions", "basket_limit", "updated_at").
		Updates(config).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CovenantConfig, error) {
	var config domain.CovenantConfig
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&config).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCovenantConfigFilter, page pagination.Pagination) ([]*domain.CovenantConfig, error) {
	var configs []*domain.CovenantConfig
	stmt := db.WithContext(ctx).Model(&domain.CovenantConfig{})
	if filter.CompanyID != 0 {
		stmt = stmt.Where("company_id = ?", filter.CompanyID)
	}
	if filter.ActiveOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repo) ListActiveByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.CovenantConfig, error) {
	var configs []domain.CovenantConfig
	err := db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("id asc").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

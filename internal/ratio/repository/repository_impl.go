package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/ratio/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, snapshot *domain.RatioSnapshot) error {
	return db.WithContext(ctx).Create(snapshot).Error
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*domain.RatioSnapshot, error) {
	var snapshot domain.RatioSnapshot
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("as_of_date desc, id desc").
		First(&snapshot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

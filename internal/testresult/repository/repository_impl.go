package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/testresult/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, result *domain.CovenantTestResult) error {
	return db.WithContext(ctx).Create(result).Error
}

func (r *repo) BatchInsert(ctx context.Context, db *gorm.DB, results []domain.CovenantTestResult) error {
	if len(results) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(results, 100).Error
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, configID snowflake.ID, n int) ([]domain.CovenantTestResult, error) {
	var results []domain.CovenantTestResult
	stmt := db.WithContext(ctx).
		Where("covenant_config_id = ?", configID).
		Order("test_date desc, id desc")
	if n > 0 {
		stmt = stmt.Limit(n)
	}
	if err := stmt.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repo) ListByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID, since time.Time) ([]domain.CovenantTestResult, error) {
	var results []domain.CovenantTestResult
	stmt := db.WithContext(ctx).
		Where("company_id = ?", companyID)
	if !since.IsZero() {
		stmt = stmt.Where("test_date >= ?", since)
	}
	err := stmt.
		Order("test_date desc, id desc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repo) LatestPerConfig(ctx context.Context, db *gorm.DB, configIDs []snowflake.ID) (map[snowflake.ID]domain.CovenantTestResult, error) {
	latest := make(map[snowflake.ID]domain.CovenantTestResult, len(configIDs))
	if len(configIDs) == 0 {
		return latest, nil
	}

	var results []domain.CovenantTestResult
	err := db.WithContext(ctx).
		Where("covenant_config_id IN ?", configIDs).
		Order("test_date desc, id desc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		if _, ok := latest[result.CovenantConfigID]; !ok {
			latest[result.CovenantConfigID] = result
		}
	}
	return latest, nil
}
